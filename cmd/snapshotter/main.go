package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/growth-index/internal/cache"
	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/queue"
	"github.com/smukkama/growth-index/internal/scheduler"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/smukkama/growth-index/internal/source"
	"github.com/smukkama/growth-index/internal/timer"
	"github.com/smukkama/growth-index/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Log)

	logger.Info("Starting Snapshot Scheduler...")

	db, err := database.Connect(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Without Redis only one scheduler instance may run.
	var locker *cache.RunLocker
	rdb, err := cache.Connect(context.Background(), cfg.Redis)
	if err != nil {
		logger.Warnf("Redis unavailable, running without a run lease: %v", err)
	} else {
		defer rdb.Close()
		locker = cache.NewRunLocker(rdb, cfg.Redis.LockTTL)
	}

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSnapshots)
	defer producer.Close()

	eng := engine.New(source.FromConfig(cfg.Upstream, db), logger)
	service := snapshot.NewService(eng, snapshot.NewPersister(db), queue.NewSnapshotPublisher(producer), logger)
	job := scheduler.NewSnapshotJob(service, db, locker, cfg.Scheduler, logger)

	timerManager := timer.NewManager(cfg.Scheduler.Workers)
	timerManager.Start()
	defer timerManager.Stop()
	logger.WithField("workers", cfg.Scheduler.Workers).Info("Timer manager started")

	if cfg.Scheduler.Weekly {
		if err := job.ScheduleRecurring(timerManager, period.Week, cfg.Scheduler.RunTime, time.Now); err != nil {
			logger.Fatalf("Failed to schedule weekly snapshots: %v", err)
		}
	}
	if cfg.Scheduler.Monthly {
		if err := job.ScheduleRecurring(timerManager, period.Month, cfg.Scheduler.RunTime, time.Now); err != nil {
			logger.Fatalf("Failed to schedule monthly snapshots: %v", err)
		}
	}
	if !cfg.Scheduler.Weekly && !cfg.Scheduler.Monthly {
		logger.Warn("Both weekly and monthly snapshots are disabled, nothing to do")
	}

	logger.Info("✓ Snapshot Scheduler is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")
}
