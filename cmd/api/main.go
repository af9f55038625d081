package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smukkama/growth-index/internal/api"
	"github.com/smukkama/growth-index/internal/cache"
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

	logger.Info("Starting Health Index API...")

	db, err := database.Connect(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Redis is optional here; without it every request computes.
	var resultCache api.ResultCache
	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Warnf("Redis unavailable, result cache disabled: %v", err)
	} else {
		defer rdb.Close()
		resultCache = cache.NewResultCache(rdb, cfg.Redis.ResultTTL)
		logger.Info("Connected to Redis")
	}

	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicSnapshots, cfg.Kafka.NumPartitions, 1); err != nil {
		logger.Warnf("Failed to create topic %s: %v", cfg.Kafka.TopicSnapshots, err)
	}
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicRecompute, cfg.Kafka.NumPartitions, 1); err != nil {
		logger.Warnf("Failed to create topic %s: %v", cfg.Kafka.TopicRecompute, err)
	}

	snapshotProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSnapshots)
	defer snapshotProducer.Close()
	recomputeProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicRecompute)
	defer recomputeProducer.Close()

	fetcher := source.FromConfig(cfg.Upstream, db)
	eng := engine.New(fetcher, logger)
	service := snapshot.NewService(eng, snapshot.NewPersister(db), queue.NewSnapshotPublisher(snapshotProducer), logger)
	handler := api.NewHandler(eng, service, resultCache, recomputeProducer, logger)

	gin.SetMode(cfg.API.GinMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	logger.WithField("port", cfg.API.Port).Info("✓ Health Index API is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown failed: %v", err)
	}
	logger.Info("Health Index API stopped")
}
