package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/cache"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/smukkama/growth-index/internal/timer"
	"github.com/smukkama/growth-index/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu     sync.Mutex
	stores []string
	window alignment.Window
	errFor map[string]error
}

func (r *fakeRunner) Run(ctx context.Context, storeID string, t period.Type, w alignment.Window) (*snapshot.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, storeID)
	r.window = w
	if err := r.errFor[storeID]; err != nil {
		return nil, err
	}
	return &snapshot.Outcome{Persisted: storeID != "unpersisted"}, nil
}

type listerFunc func(ctx context.Context) ([]string, error)

func (f listerFunc) ListStoreIDs(ctx context.Context) ([]string, error) { return f(ctx) }

var monday = time.Date(2025, 6, 9, 2, 0, 0, 0, time.UTC)

func TestRunPreviousUsesStoreListing(t *testing.T) {
	runner := &fakeRunner{errFor: map[string]error{"broken": errors.New("boom")}}
	lister := listerFunc(func(ctx context.Context) ([]string, error) {
		return []string{"a", "broken", "unpersisted", "b"}, nil
	})
	job := NewSnapshotJob(runner, lister, nil, config.SchedulerConfig{}, logging.Discard())

	summary, err := job.RunPrevious(context.Background(), period.Week, monday)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "broken", "unpersisted", "b"}, runner.stores)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), runner.window.Start)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), runner.window.End)
	assert.Equal(t, 4, summary.Stores)
	assert.Equal(t, 2, summary.Persisted)
	assert.Equal(t, 2, summary.Failed)
	assert.False(t, summary.Skipped)
}

func TestRunPreviousConfiguredStoresWin(t *testing.T) {
	runner := &fakeRunner{}
	lister := listerFunc(func(ctx context.Context) ([]string, error) {
		t.Fatal("store listing should not be used")
		return nil, nil
	})
	job := NewSnapshotJob(runner, lister, nil, config.SchedulerConfig{StoreIDs: []string{"x"}}, logging.Discard())

	summary, err := job.RunPrevious(context.Background(), period.Month, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, runner.stores)
	assert.Equal(t, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), summary.Window.End)
}

func TestRunPreviousListingError(t *testing.T) {
	lister := listerFunc(func(ctx context.Context) ([]string, error) { return nil, errors.New("db down") })
	job := NewSnapshotJob(&fakeRunner{}, lister, nil, config.SchedulerConfig{}, logging.Discard())

	_, err := job.RunPrevious(context.Background(), period.Week, monday)
	assert.ErrorContains(t, err, "db down")
}

func TestRunPreviousSkipsWhenLeaseHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := cache.NewRunLocker(client, time.Minute)
	held, err := locker.Obtain(context.Background(), "snapshot:week:2025-06-08")
	require.NoError(t, err)

	runner := &fakeRunner{}
	job := NewSnapshotJob(runner, nil, locker, config.SchedulerConfig{StoreIDs: []string{"a"}}, logging.Discard())

	summary, err := job.RunPrevious(context.Background(), period.Week, monday)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Empty(t, runner.stores)

	require.NoError(t, held.Release(context.Background()))
	summary, err = job.RunPrevious(context.Background(), period.Week, monday)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, []string{"a"}, runner.stores)

	// The lease is released after the run.
	again, err := locker.Obtain(context.Background(), "snapshot:week:2025-06-08")
	require.NoError(t, err)
	require.NoError(t, again.Release(context.Background()))
}

func TestNextRunTime(t *testing.T) {
	tests := []struct {
		name string
		typ  period.Type
		now  time.Time
		want time.Time
	}{
		{"weekly before run on monday", period.Week, time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 2, 0, 0, 0, time.UTC)},
		{"weekly exactly at run", period.Week, monday, time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC)},
		{"weekly midweek", period.Week, time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC)},
		{"weekly sunday", period.Week, time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC)},
		{"monthly before run", period.Month, time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC), time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)},
		{"monthly mid month", period.Month, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)},
		{"monthly december", period.Month, time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRunTime(tt.typ, "02:00", tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NextRunTime(period.Week, "2am", monday)
	assert.Error(t, err)
	_, err = NextRunTime("year", "02:00", monday)
	assert.ErrorIs(t, err, period.ErrUnknownPeriodType)
}

func TestScheduleRecurringRegistersNextRun(t *testing.T) {
	tm := timer.NewManager(1)
	job := NewSnapshotJob(&fakeRunner{}, nil, nil, config.SchedulerConfig{StoreIDs: []string{"a"}}, logging.Discard())

	now := func() time.Time { return time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC) }
	require.NoError(t, job.ScheduleRecurring(tm, period.Week, "02:00", now))
	require.NoError(t, job.ScheduleRecurring(tm, period.Month, "02:00", now))

	next, ok := tm.Next("week-snapshots")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC), next)

	next, ok = tm.Next("month-snapshots")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), next)

	assert.Error(t, job.ScheduleRecurring(tm, period.Week, "25:00", now))
}

func TestScheduleRecurringRunsAndReschedules(t *testing.T) {
	tm := timer.NewManager(1)
	tm.Start()
	defer tm.Stop()

	runner := &fakeRunner{}
	job := NewSnapshotJob(runner, nil, nil, config.SchedulerConfig{StoreIDs: []string{"a"}}, logging.Discard())

	// The first reading puts the run in the past so it fires at once; later
	// readings are real, which pushes the next run to a future Monday.
	var mu sync.Mutex
	calls := 0
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return time.Date(2020, 1, 6, 1, 0, 0, 0, time.UTC)
		}
		return time.Now()
	}

	require.NoError(t, job.ScheduleRecurring(tm, period.Week, "02:00", now))

	assert.Eventually(t, func() bool {
		next, ok := tm.Next("week-snapshots")
		return ok && next.After(time.Now())
	}, time.Second, 10*time.Millisecond)

	runner.mu.Lock()
	assert.Equal(t, []string{"a"}, runner.stores)
	runner.mu.Unlock()
}
