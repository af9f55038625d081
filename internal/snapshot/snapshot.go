// Package snapshot persists computed health indexes per reporting period.
// A snapshot is keyed by (store, period type, period end); writing the same
// key again replaces the stored values and keeps the original id.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/scoring"
)

// Snapshot is the persisted form of one computation.
type Snapshot struct {
	ID           string                   `json:"id"`
	StoreID      string                   `json:"storeId"`
	PeriodType   period.Type              `json:"periodType"`
	PeriodStart  time.Time                `json:"periodStart"`
	PeriodEnd    time.Time                `json:"periodEnd"`
	PeriodLabel  string                   `json:"periodLabel"`
	OverallIndex scoring.OverallIndex     `json:"overallIndex"`
	Categories   scoring.Categories       `json:"categories"`
	MatchedDays  map[metric.Source]int    `json:"matchedDays,omitempty"`
	SourceErrors map[metric.Source]string `json:"sourceErrors,omitempty"`
	ComputedAt   time.Time                `json:"computedAt"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// Store is the snapshot table. *database.DB implements it.
type Store interface {
	UpsertSnapshot(ctx context.Context, row *database.SnapshotRow) error
	GetSnapshot(ctx context.Context, storeID, periodType string, periodEnd time.Time) (*database.SnapshotRow, error)
	ListSnapshots(ctx context.Context, storeID, periodType string, limit int) ([]*database.SnapshotRow, error)
}

// breakdown is the JSON column: everything not flattened into scalars.
type breakdown struct {
	Categories   scoring.Categories       `json:"categories"`
	MatchedDays  map[metric.Source]int    `json:"matchedDays,omitempty"`
	SourceErrors map[metric.Source]string `json:"sourceErrors,omitempty"`
}

// New builds the snapshot of a result for a period.
func New(storeID string, t period.Type, w alignment.Window, res *engine.Result) *Snapshot {
	return &Snapshot{
		StoreID:      storeID,
		PeriodType:   t,
		PeriodStart:  w.Start,
		PeriodEnd:    w.End,
		PeriodLabel:  period.Label(t, w),
		OverallIndex: res.OverallIndex,
		Categories:   res.Categories,
		MatchedDays:  res.MatchedDays,
		SourceErrors: res.SourceErrors,
		ComputedAt:   res.ComputedAt,
	}
}

func (s *Snapshot) toRow() (*database.SnapshotRow, error) {
	raw, err := json.Marshal(breakdown{
		Categories:   s.Categories,
		MatchedDays:  s.MatchedDays,
		SourceErrors: s.SourceErrors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	return &database.SnapshotRow{
		ID:              s.ID,
		StoreID:         s.StoreID,
		PeriodType:      string(s.PeriodType),
		PeriodStart:     s.PeriodStart,
		PeriodEnd:       s.PeriodEnd,
		PeriodLabel:     s.PeriodLabel,
		OverallIndex:    s.OverallIndex.Value,
		Level:           string(s.OverallIndex.Level),
		GrowthScore:     s.Categories.Growth.Score,
		QualityScore:    s.Categories.Quality.Score,
		EfficiencyScore: s.Categories.Efficiency.Score,
		LeverageScore:   s.Categories.Leverage.Score,
		Breakdown:       raw,
		ComputedAt:      s.ComputedAt,
	}, nil
}

// FromRow decodes a stored row.
func FromRow(row *database.SnapshotRow) (*Snapshot, error) {
	var b breakdown
	if len(row.Breakdown) > 0 {
		if err := json.Unmarshal(row.Breakdown, &b); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown of snapshot %s: %w", row.ID, err)
		}
	}

	return &Snapshot{
		ID:           row.ID,
		StoreID:      row.StoreID,
		PeriodType:   period.Type(row.PeriodType),
		PeriodStart:  row.PeriodStart,
		PeriodEnd:    row.PeriodEnd,
		PeriodLabel:  row.PeriodLabel,
		OverallIndex: scoring.OverallIndex{Value: row.OverallIndex, Level: scoring.Level(row.Level)},
		Categories:   b.Categories,
		MatchedDays:  b.MatchedDays,
		SourceErrors: b.SourceErrors,
		ComputedAt:   row.ComputedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// Persister writes snapshots through a Store.
type Persister struct {
	store Store
}

func NewPersister(store Store) *Persister {
	return &Persister{store: store}
}

// Persist upserts the snapshot of res. The returned snapshot carries the
// stored id, which is the original one when the key already existed.
func (p *Persister) Persist(ctx context.Context, storeID string, t period.Type, w alignment.Window, res *engine.Result) (*Snapshot, error) {
	snap := New(storeID, t, w, res)
	snap.ID = uuid.NewString()

	row, err := snap.toRow()
	if err != nil {
		return nil, err
	}
	if err := p.store.UpsertSnapshot(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot %s/%s/%s: %w", storeID, t, w.End.Format(time.DateOnly), err)
	}

	snap.ID = row.ID
	snap.CreatedAt = row.CreatedAt
	snap.UpdatedAt = row.UpdatedAt
	return snap, nil
}

// Get returns the snapshot for a key, or nil when none is stored.
func (p *Persister) Get(ctx context.Context, storeID string, t period.Type, periodEnd time.Time) (*Snapshot, error) {
	row, err := p.store.GetSnapshot(ctx, storeID, string(t), periodEnd)
	if err != nil || row == nil {
		return nil, err
	}
	return FromRow(row)
}

// History returns up to limit snapshots of one type, newest first.
func (p *Persister) History(ctx context.Context, storeID string, t period.Type, limit int) ([]*Snapshot, error) {
	rows, err := p.store.ListSnapshots(ctx, storeID, string(t), limit)
	if err != nil {
		return nil, err
	}

	out := make([]*Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
