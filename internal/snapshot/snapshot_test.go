package snapshot

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/scoring"
	"github.com/smukkama/growth-index/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mimics the ON CONFLICT upsert of the snapshot table.
type memStore struct {
	mu     sync.Mutex
	rows   map[string]*database.SnapshotRow
	failOn error
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[string]*database.SnapshotRow),
		clock: time.Date(2025, 6, 9, 2, 0, 0, 0, time.UTC),
	}
}

func key(storeID, periodType string, end time.Time) string {
	return storeID + "|" + periodType + "|" + end.Format(time.DateOnly)
}

func (m *memStore) UpsertSnapshot(ctx context.Context, row *database.SnapshotRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}

	m.clock = m.clock.Add(time.Minute)
	k := key(row.StoreID, row.PeriodType, row.PeriodEnd)
	stored := *row
	if existing, ok := m.rows[k]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = m.clock
	}
	stored.UpdatedAt = m.clock
	m.rows[k] = &stored

	row.ID, row.CreatedAt, row.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (m *memStore) GetSnapshot(ctx context.Context, storeID, periodType string, periodEnd time.Time) (*database.SnapshotRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key(storeID, periodType, periodEnd)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) ListSnapshots(ctx context.Context, storeID, periodType string, limit int) ([]*database.SnapshotRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*database.SnapshotRow
	for _, row := range m.rows {
		if row.StoreID == storeID && row.PeriodType == periodType {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.After(out[j].PeriodEnd) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePublisher struct {
	published []*Snapshot
	err       error
}

func (p *fakePublisher) PublishSnapshot(ctx context.Context, s *Snapshot) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, s)
	return nil
}

var week = alignment.Window{
	Start: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
}

func resultWithIndex(v int) *engine.Result {
	cat := scoring.CategoryScore{Score: v, Weight: scoring.WeightGrowth, Components: []scoring.Component{{ID: "organicClicks", Score: v}}}
	return &engine.Result{
		StoreID:      "store-1",
		PeriodStart:  week.Start,
		PeriodEnd:    week.End,
		OverallIndex: scoring.OverallIndex{Value: v, Level: scoring.LevelFromScore(v)},
		Categories:   scoring.Categories{Growth: cat, Quality: cat, Efficiency: cat, Leverage: cat},
		MatchedDays:  map[metric.Source]int{metric.SourceSearch: 7},
		ComputedAt:   time.Date(2025, 6, 9, 2, 0, 0, 0, time.UTC),
	}
}

func TestPersistIsIdempotentPerKey(t *testing.T) {
	store := newMemStore()
	p := NewPersister(store)
	ctx := context.Background()

	first, err := p.Persist(ctx, "store-1", period.Week, week, resultWithIndex(40))
	require.NoError(t, err)
	second, err := p.Persist(ctx, "store-1", period.Week, week, resultWithIndex(90))
	require.NoError(t, err)

	assert.Len(t, store.rows, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	got, err := p.Get(ctx, "store-1", period.Week, week.End)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 90, got.OverallIndex.Value)
	assert.Equal(t, scoring.LevelExcellent, got.OverallIndex.Level)
	assert.Equal(t, 90, got.Categories.Leverage.Score)
	assert.Equal(t, "2025-W23", got.PeriodLabel)
	assert.Equal(t, 7, got.MatchedDays[metric.SourceSearch])
}

func TestPersistSeparateKeys(t *testing.T) {
	store := newMemStore()
	p := NewPersister(store)
	ctx := context.Background()

	_, err := p.Persist(ctx, "store-1", period.Week, week, resultWithIndex(40))
	require.NoError(t, err)
	_, err = p.Persist(ctx, "store-2", period.Week, week, resultWithIndex(40))
	require.NoError(t, err)

	month := alignment.Window{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)}
	_, err = p.Persist(ctx, "store-1", period.Month, month, resultWithIndex(40))
	require.NoError(t, err)

	assert.Len(t, store.rows, 3)

	history, err := p.History(ctx, "store-1", period.Month, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-06", history[0].PeriodLabel)
}

func TestGetMissingSnapshot(t *testing.T) {
	got, err := NewPersister(newMemStore()).Get(context.Background(), "nope", period.Week, week.End)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServiceRunPersistsAndPublishes(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{}
	eng := engine.New(source.NewStaticFetcher(), logging.Discard())
	svc := NewService(eng, NewPersister(store), pub, logging.Discard())

	out, err := svc.Run(context.Background(), "store-1", period.Week, week)
	require.NoError(t, err)

	assert.True(t, out.Persisted)
	assert.True(t, out.Published)
	require.NotNil(t, out.Snapshot)
	assert.Equal(t, 50, out.Result.OverallIndex.Value)
	assert.Equal(t, out.Result.OverallIndex, out.Snapshot.OverallIndex)
	require.Len(t, pub.published, 1)
	assert.Equal(t, out.Snapshot.ID, pub.published[0].ID)
}

func TestServiceRunKeepsResultWhenPersistFails(t *testing.T) {
	store := newMemStore()
	store.failOn = errors.New("connection refused")
	pub := &fakePublisher{}
	logger, hook := logtest.NewNullLogger()

	svc := NewService(engine.New(source.NewStaticFetcher(), logger), NewPersister(store), pub, logger)
	out, err := svc.Run(context.Background(), "store-1", period.Week, week)
	require.NoError(t, err)

	require.NotNil(t, out.Result)
	assert.False(t, out.Persisted)
	assert.Nil(t, out.Snapshot)
	assert.Empty(t, pub.published)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Contains(t, entry.Message, "connection refused")
}

func TestServiceRunPublishFailureIsNotFatal(t *testing.T) {
	svc := NewService(engine.New(source.NewStaticFetcher(), logging.Discard()),
		NewPersister(newMemStore()), &fakePublisher{err: errors.New("broker down")}, logging.Discard())

	out, err := svc.Run(context.Background(), "store-1", period.Week, week)
	require.NoError(t, err)
	assert.True(t, out.Persisted)
	assert.False(t, out.Published)
}

func TestServiceRunComputeError(t *testing.T) {
	svc := NewService(engine.New(source.NewStaticFetcher(), logging.Discard()),
		NewPersister(newMemStore()), nil, logging.Discard())

	_, err := svc.Run(context.Background(), "", period.Week, week)
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)
}
