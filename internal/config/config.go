// Package config reads the server configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/internal/game"
	"github.com/pfcuttle/cuttle/internal/server"
)

// Config is the full server configuration.
type Config struct {
	ListenAddr string

	// empty disables Postgres persistence (in-memory store)
	DatabaseURL string
	// empty disables the Redis action journal
	RedisURL string

	JWTSecret string

	// 0 disables the counter-window expiry timer
	CounterWindow time.Duration
	// how long a player binding outlives its socket
	GracePeriod time.Duration

	LogLevel logrus.Level
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded .env")
	}

	cfg := &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CounterWindow: game.DefaultCounterWindow,
		GracePeriod:   server.DefaultGracePeriod,
		LogLevel:      logrus.InfoLevel,
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.CounterWindow, err = getSeconds("COUNTER_WINDOW_SEC", cfg.CounterWindow); err != nil {
		return nil, err
	}
	if cfg.GracePeriod, err = getSeconds("GRACE_PERIOD_SEC", cfg.GracePeriod); err != nil {
		return nil, err
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("bad LOG_LEVEL %q: %w", lvl, err)
		}
		cfg.LogLevel = parsed
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad %s %q: want a non-negative integer", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
