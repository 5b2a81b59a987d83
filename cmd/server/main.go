// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/fizzbuzz/internal/auth"
	"github.com/jason-s-yu/fizzbuzz/internal/config"
	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/events"
	"github.com/jason-s-yu/fizzbuzz/internal/game"
	"github.com/jason-s-yu/fizzbuzz/internal/handlers"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg)
	logrus.SetFormatter(logger.Formatter)
	logrus.SetLevel(logger.GetLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer cleanup()

	if cfg.IsDevelopment() && cfg.SeedFile != "" {
		n, err := database.Seed(ctx, store, cfg.SeedFile)
		if err != nil {
			logger.WithError(err).Warn("seeding failed")
		} else if n > 0 {
			logger.Infof("seeded %d games from %s", n, cfg.SeedFile)
		}
	}

	if err := auth.Setup(cfg.PlayTokenPrivateKeyPath, cfg.PlayTokenPublicKeyPath, cfg.TokenTTL); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	opts := []game.Option{game.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("session events disabled")
		} else {
			defer rdb.Close()
			opts = append(opts, game.WithEvents(events.NewRedisPublisher(rdb, cfg.EventQueue)))
			logger.Infof("publishing session events to %s", cfg.EventQueue)
		}
	}

	svc := game.NewService(store, opts...)
	api := handlers.NewAPIServer(svc, logger, handlers.ServerOptions{
		Development:       cfg.IsDevelopment(),
		PlayTokenRequired: cfg.PlayTokenRequired,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (database.Store, func(), error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), func() {}, nil
	}

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return database.NewPgStore(pool), pool.Close, nil
}
