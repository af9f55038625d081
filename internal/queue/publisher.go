package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smukkama/growth-index/internal/protocol"
	"github.com/smukkama/growth-index/internal/snapshot"
)

// MessageWriter is the producing side. *Producer implements it.
type MessageWriter interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// SnapshotPublisher emits a SnapshotEvent for every persisted snapshot.
type SnapshotPublisher struct {
	writer MessageWriter
}

func NewSnapshotPublisher(writer MessageWriter) *SnapshotPublisher {
	return &SnapshotPublisher{writer: writer}
}

func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, s *snapshot.Snapshot) error {
	data, err := protocol.EncodeSnapshotEvent(NewSnapshotEvent(s))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot event: %w", err)
	}
	return p.writer.Publish(ctx, s.StoreID, data)
}

func NewSnapshotEvent(s *snapshot.Snapshot) *protocol.SnapshotEvent {
	return &protocol.SnapshotEvent{
		EventID:      uuid.NewString(),
		Type:         protocol.EventTypeSnapshotSaved,
		SnapshotID:   s.ID,
		StoreID:      s.StoreID,
		PeriodType:   string(s.PeriodType),
		PeriodStart:  s.PeriodStart.Format(time.DateOnly),
		PeriodEnd:    s.PeriodEnd.Format(time.DateOnly),
		PeriodLabel:  s.PeriodLabel,
		OverallIndex: s.OverallIndex.Value,
		Level:        string(s.OverallIndex.Level),
		Categories: protocol.CategoryScores{
			Growth:     s.Categories.Growth.Score,
			Quality:    s.Categories.Quality.Score,
			Efficiency: s.Categories.Efficiency.Score,
			Leverage:   s.Categories.Leverage.Score,
		},
		ComputedAt: s.ComputedAt,
	}
}
