package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/birdboard/birdboard-backend/config"
	"github.com/birdboard/birdboard-backend/internal/auth"
	"github.com/birdboard/birdboard-backend/internal/bootstrap"
	"github.com/birdboard/birdboard-backend/internal/logging"
	redisstore "github.com/birdboard/birdboard-backend/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	logging.SetDefault(logger)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("connected to database")

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisstore.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, project list cache disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			logger.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
		}
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.Mode == config.AuthModeFirebase {
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize firebase")
		}
		verifier = client
	} else {
		logger.Warn("AUTH_MODE=header trusts X-User-Id; do not use outside development")
	}

	resolver, err := auth.NewResolver(cfg.Auth.Mode, verifier)
	if err != nil {
		logger.WithError(err).Fatal("failed to build auth resolver")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    rdb,
		Resolver: resolver,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"env":  cfg.App.Environment,
		}).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server exited")
}
