package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/queue"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/smukkama/growth-index/internal/source"
	"github.com/smukkama/growth-index/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Log)

	logger.Info("Starting Recompute Worker...")

	db, err := database.Connect(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicRecompute, cfg.Kafka.NumPartitions, 1); err != nil {
		logger.Warnf("Failed to create topic %s: %v", cfg.Kafka.TopicRecompute, err)
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRecompute, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSnapshots)
	defer producer.Close()

	eng := engine.New(source.FromConfig(cfg.Upstream, db), logger)
	service := snapshot.NewService(eng, snapshot.NewPersister(db), queue.NewSnapshotPublisher(producer), logger)

	worker := queue.NewRecomputeWorker(consumer, service, logger, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := consumer.Stats()
				logger.WithFields(logrus.Fields{
					"messages": stats.Messages,
					"bytes":    stats.Bytes,
					"errors":   stats.Errors,
					"lag":      stats.Lag,
				}).Info("Consumer stats")
			}
		}
	}()

	logger.WithFields(logrus.Fields{
		"topic":          cfg.Kafka.TopicRecompute,
		"group":          cfg.Kafka.ConsumerGroup,
		"batch_size":     cfg.Kafka.BatchSize,
		"flush_interval": cfg.Kafka.FlushInterval.String(),
	}).Info("✓ Recompute Worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")
	worker.Stop()
	logger.Info("Recompute Worker stopped")
}
