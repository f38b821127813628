package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/meddiag/platform/pkg/common/config"
	"github.com/meddiag/platform/pkg/common/kafka"
	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/diagnosis"
)

func main() {
	logger.Init()
	cfg := config.Load()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.DiagnosisTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	watcher := diagnosis.NewWatcher(cfg.AlertThreshold)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger.Log.WithFields(map[string]interface{}{
		"topic":     cfg.DiagnosisTopic,
		"group_id":  cfg.KafkaGroupID,
		"threshold": cfg.AlertThreshold,
	}).Info("Diagnosis watcher started")

	if err := consumer.Consume(ctx, watcher.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("Consumer stopped")
	}

	seen, alerts := watcher.Stats()
	logger.Log.WithFields(map[string]interface{}{
		"seen":   seen,
		"alerts": alerts,
	}).Info("Diagnosis watcher stopped")
}
