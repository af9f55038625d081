package snapshot

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
)

// Computer runs the index pipeline. *engine.Engine implements it.
type Computer interface {
	Compute(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Publisher announces persisted snapshots.
type Publisher interface {
	PublishSnapshot(ctx context.Context, s *Snapshot) error
}

// Outcome is what one run produced. Result is always set; Snapshot only
// when the upsert succeeded.
type Outcome struct {
	Result    *engine.Result
	Snapshot  *Snapshot
	Persisted bool
	Published bool
}

// Service computes a period and persists it.
type Service struct {
	computer  Computer
	persister *Persister
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewService builds the run service. publisher may be nil.
func NewService(computer Computer, persister *Persister, publisher Publisher, logger logrus.FieldLogger) *Service {
	return &Service{
		computer:  computer,
		persister: persister,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Persister() *Persister {
	return s.persister
}

// Run computes the index for w and upserts the snapshot. Persistence and
// publish failures are logged and reported in the Outcome; the computed
// result is returned either way. Only a failed computation is an error.
func (s *Service) Run(ctx context.Context, storeID string, t period.Type, w alignment.Window) (*Outcome, error) {
	res, err := s.computer.Compute(ctx, engine.Request{StoreID: storeID, Start: w.Start, End: w.End})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res}
	fields := logrus.Fields{
		"store_id":    storeID,
		"period_type": t,
		"period_end":  w.End.Format("2006-01-02"),
	}

	snap, err := s.persister.Persist(ctx, storeID, t, w, res)
	if err != nil {
		logging.LogError(s.logger, "snapshot", "Run", "persisting snapshot", fields, err)
		return out, nil
	}
	out.Snapshot = snap
	out.Persisted = true

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			logging.LogError(s.logger, "snapshot", "Run", "publishing snapshot event", fields, err)
		} else {
			out.Published = true
		}
	}

	s.logger.WithFields(fields).WithFields(logrus.Fields{
		"snapshot_id":   snap.ID,
		"overall_index": snap.OverallIndex.Value,
		"level":         snap.OverallIndex.Level,
	}).Info("Snapshot saved")

	return out, nil
}
