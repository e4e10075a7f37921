package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/internal/auth"
	"github.com/pfcuttle/cuttle/internal/cache"
	"github.com/pfcuttle/cuttle/internal/config"
	"github.com/pfcuttle/cuttle/internal/database"
	"github.com/pfcuttle/cuttle/internal/game"
	"github.com/pfcuttle/cuttle/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("config: ", err)
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store game.Store = game.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pg, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.Fatal("postgres: ", err)
		}
		defer pg.Close()
		store = pg
		logrus.Info("postgres persistence enabled")
	} else {
		logrus.Warn("DATABASE_URL not set, games persist in memory only")
	}

	var journal game.Journal
	if cfg.RedisURL != "" {
		j, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logrus.Fatal("redis: ", err)
		}
		defer j.Close()
		journal = j
		logrus.Info("redis action journal enabled")
	} else {
		logrus.Warn("REDIS_URL not set, action journal disabled")
	}

	manager := game.NewManager(store, journal, cfg.CounterWindow)
	hub := server.NewHub(manager, cfg.GracePeriod)
	srv := server.New(hub, auth.NewVerifier(cfg.JWTSecret))

	mux := http.NewServeMux()
	srv.Routes(mux)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Info("listening on ", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal("serve: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logrus.Warn("shutdown: ", err)
	}
}
