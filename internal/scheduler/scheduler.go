// Package scheduler runs snapshot jobs for completed weeks and months.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/cache"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/smukkama/growth-index/internal/timer"
	"github.com/smukkama/growth-index/pkg/config"
)

// Runner computes and persists one period. *snapshot.Service implements it.
type Runner interface {
	Run(ctx context.Context, storeID string, t period.Type, w alignment.Window) (*snapshot.Outcome, error)
}

// StoreLister lists active stores. *database.DB implements it.
type StoreLister interface {
	ListStoreIDs(ctx context.Context) ([]string, error)
}

// Summary describes one job run.
type Summary struct {
	PeriodType period.Type
	Window     alignment.Window
	Stores     int
	Persisted  int
	Failed     int
	// Skipped is set when another process holds the run lease.
	Skipped bool
}

type SnapshotJob struct {
	runner       Runner
	stores       StoreLister
	storeIDs     []string
	locker       *cache.RunLocker
	fetchTimeout time.Duration
	logger       logrus.FieldLogger
}

// NewSnapshotJob builds a job. A non-empty cfg.StoreIDs replaces the store
// listing; locker may be nil when a single instance runs.
func NewSnapshotJob(runner Runner, stores StoreLister, locker *cache.RunLocker, cfg config.SchedulerConfig, logger logrus.FieldLogger) *SnapshotJob {
	return &SnapshotJob{
		runner:       runner,
		stores:       stores,
		storeIDs:     cfg.StoreIDs,
		locker:       locker,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
	}
}

// RunPrevious snapshots the last completed period of type t for every
// store. Stores run one after another; one failing store does not stop the
// others.
func (j *SnapshotJob) RunPrevious(ctx context.Context, t period.Type, now time.Time) (*Summary, error) {
	w, err := period.PreviousCompleted(t, now)
	if err != nil {
		return nil, err
	}
	summary := &Summary{PeriodType: t, Window: w}
	fields := logrus.Fields{"period_type": t, "period": period.Label(t, w)}

	if j.locker != nil {
		lease, err := j.locker.Obtain(ctx, fmt.Sprintf("snapshot:%s:%s", t, w.End.Format(time.DateOnly)))
		if errors.Is(err, cache.ErrLockNotObtained) {
			j.logger.WithFields(fields).Info("Snapshot run already in progress elsewhere, skipping")
			summary.Skipped = true
			return summary, nil
		}
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				logging.LogError(j.logger, "scheduler", "RunPrevious", "releasing run lease", fields, err)
			}
		}()
	}

	storeIDs, err := j.resolveStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	summary.Stores = len(storeIDs)

	j.logger.WithFields(fields).WithField("stores", len(storeIDs)).Info("Running snapshots")

	for _, storeID := range storeIDs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if j.runStore(ctx, storeID, t, w) {
			summary.Persisted++
		} else {
			summary.Failed++
		}
	}

	j.logger.WithFields(fields).WithFields(logrus.Fields{
		"stores":    summary.Stores,
		"persisted": summary.Persisted,
		"failed":    summary.Failed,
	}).Info("Snapshot run complete")

	return summary, nil
}

func (j *SnapshotJob) runStore(ctx context.Context, storeID string, t period.Type, w alignment.Window) bool {
	if j.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.fetchTimeout)
		defer cancel()
	}

	out, err := j.runner.Run(ctx, storeID, t, w)
	if err != nil {
		logging.LogError(j.logger, "scheduler", "runStore", "computing snapshot",
			logrus.Fields{"store_id": storeID, "period_type": t}, err)
		return false
	}
	return out.Persisted
}

func (j *SnapshotJob) resolveStores(ctx context.Context) ([]string, error) {
	if len(j.storeIDs) > 0 {
		return j.storeIDs, nil
	}
	if j.stores == nil {
		return nil, errors.New("no store ids configured and no store listing available")
	}
	return j.stores.ListStoreIDs(ctx)
}

// NextRunTime returns the next run strictly after now: Mondays for weekly
// snapshots and the 1st of the month for monthly ones, at timeOfDay (HH:MM).
func NextRunTime(t period.Type, timeOfDay string, now time.Time) (time.Time, error) {
	hour, minute, err := config.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	switch t {
	case period.Week:
		daysUntilMonday := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		next := time.Date(now.Year(), now.Month(), now.Day()+daysUntilMonday, hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil
	case period.Month:
		next := time.Date(now.Year(), now.Month(), 1, hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 1, 0)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", period.ErrUnknownPeriodType, t)
	}
}

// ScheduleRecurring registers the job on tm for period type t and
// re-registers it after every run.
func (j *SnapshotJob) ScheduleRecurring(tm *timer.Manager, t period.Type, timeOfDay string, now func() time.Time) error {
	taskID := fmt.Sprintf("%s-snapshots", t)

	var scheduleNext func() error
	scheduleNext = func() error {
		nextRun, err := NextRunTime(t, timeOfDay, now())
		if err != nil {
			return err
		}
		j.logger.WithFields(logrus.Fields{"task": taskID, "next_run": nextRun.Format(time.RFC3339)}).Info("Snapshot run scheduled")

		return tm.Schedule(taskID, nextRun, func(ctx context.Context) {
			if _, err := j.RunPrevious(ctx, t, now()); err != nil {
				logging.LogError(j.logger, "scheduler", "ScheduleRecurring", "running snapshots", taskID, err)
			}
			if err := scheduleNext(); err != nil && !errors.Is(err, timer.ErrManagerStopped) {
				logging.LogError(j.logger, "scheduler", "ScheduleRecurring", "rescheduling", taskID, err)
			}
		})
	}

	return scheduleNext()
}
