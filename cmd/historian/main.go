// cmd/historian drains session events from Redis and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/fizzbuzz/internal/config"
	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/events"
	"github.com/jason-s-yu/fizzbuzz/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := events.ConnectRedis(ctx, addr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.NewService(rdb, cfg.EventQueue, cfg.HistorianBatchSize, cfg.HistorianFlush, historian.PostgresSink(pool), logger)
	hs.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
