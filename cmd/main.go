package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"forumcore/internal/app"
	"forumcore/internal/config"
	"forumcore/internal/utils"
)

func main() {
	logger, err := utils.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer logger.Sync()

	utils.LoadEnv(logger)

	cfg := config.LoadConfig()

	logger.Info("Config loaded",
		zap.String("db_host", cfg.DBHost),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("env", cfg.Env),
	)

	application, err := app.Bootstrap(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to bootstrap application", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	status := application.Health.Check(ctx)
	cancel()
	logger.Info("Startup health check", zap.String("status", status.Status))

	// Drain broadcast events to the log until a collaborator takes over
	// delivery.
	go func() {
		for e := range application.EventBus.SubscribeCh() {
			logger.Debug("Event broadcast",
				zap.String("channel", e.Channel),
				zap.String("event", e.Event),
			)
		}
	}()

	logger.Info("Forum core ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
}
