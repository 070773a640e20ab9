package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/analytics"
	"github.com/iliyamo/expo-appointments/internal/config"
	"github.com/iliyamo/expo-appointments/internal/database"
	"github.com/iliyamo/expo-appointments/internal/logger"
	"github.com/iliyamo/expo-appointments/internal/queue"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

// analytics-consumer drains the analytics queue into exhibitor_analytics.
func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel, "expo-analytics-consumer")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		zl.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := analytics.NewSQLRecorder(repository.NewAnalyticsRepo(db))
	zl.Info("consuming", zap.String("queue", cfg.AMQP.Queue))
	if err := queue.StartAnalyticsConsumer(ctx, cfg.AMQP, sink, zl); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
	}
	zl.Info("consumer stopped")
}
