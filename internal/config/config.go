// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is everything the server and historian read from the environment.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Store       string // "postgres" or "memory"
	DatabaseURL string

	RedisAddr  string // empty disables event publishing
	RedisDB    int
	EventQueue string

	AllowedOrigins []string

	PlayTokenRequired bool
	TokenTTL          time.Duration
	// raw ed25519 key files; when both are empty a key pair is generated per process
	PlayTokenPrivateKeyPath string
	PlayTokenPublicKeyPath  string

	SeedFile string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.Env != EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("FIZZBUZZ_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE", "postgres")
	v.SetDefault("PG_HOST", "localhost")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("PG_DATABASE", "fizzbuzz")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EVENTS_QUEUE_NAME", "fizzbuzz_session_events")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://ui:3000")
	v.SetDefault("PLAY_TOKEN_REQUIRED", false)
	v.SetDefault("TOKEN_EXPIRE_TIME", "never")
	v.SetDefault("SEED_FILE", "data/games.json")
	v.SetDefault("HISTORIAN_BATCH_SIZE", 20)
	v.SetDefault("HISTORIAN_FLUSH_MS", 500)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                strings.ToLower(v.GetString("FIZZBUZZ_ENV")),
		Port:               v.GetString("PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Store:              strings.ToLower(v.GetString("STORE")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisDB:            v.GetInt("REDIS_DB"),
		EventQueue:         v.GetString("EVENTS_QUEUE_NAME"),
		PlayTokenRequired:  v.GetBool("PLAY_TOKEN_REQUIRED"),
		SeedFile:           v.GetString("SEED_FILE"),
		HistorianBatchSize: v.GetInt("HISTORIAN_BATCH_SIZE"),
		HistorianFlush:     time.Duration(v.GetInt("HISTORIAN_FLUSH_MS")) * time.Millisecond,
	}

	cfg.PlayTokenPrivateKeyPath = v.GetString("PLAY_TOKEN_PRIVATE_KEY_PATH")
	cfg.PlayTokenPublicKeyPath = v.GetString("PLAY_TOKEN_PUBLIC_KEY_PATH")

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("FIZZBUZZ_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}
	if cfg.Store != "postgres" && cfg.Store != "memory" {
		return nil, fmt.Errorf("STORE must be postgres or memory, got %q", cfg.Store)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
		if !cfg.IsDevelopment() {
			cfg.LogLevel = "info"
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			v.GetString("POSTGRES_USER"),
			v.GetString("POSTGRES_PASSWORD"),
			v.GetString("PG_HOST"),
			v.GetString("PG_PORT"),
			v.GetString("PG_DATABASE"),
		)
	}

	for _, o := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	switch ttl := v.GetString("TOKEN_EXPIRE_TIME"); ttl {
	case "never", "0", "":
		cfg.TokenTTL = 0
	default:
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
		}
		cfg.TokenTTL = d
	}

	return cfg, nil
}
