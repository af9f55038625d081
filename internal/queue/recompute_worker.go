package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/protocol"
	"github.com/smukkama/growth-index/internal/snapshot"
)

// Runner computes and persists one period. *snapshot.Service implements it.
type Runner interface {
	Run(ctx context.Context, storeID string, t period.Type, w alignment.Window) (*snapshot.Outcome, error)
}

// BatchStats summarizes one flushed batch.
type BatchStats struct {
	Received  int
	Invalid   int
	Unique    int
	Persisted int
	Failed    int
}

// RecomputeWorker consumes recompute requests in batches. Requests for the
// same (store, period type, period end) within a batch run once, and every
// offset of the batch is committed after the batch is processed.
type RecomputeWorker struct {
	source        MessageSource
	runner        Runner
	logger        logrus.FieldLogger
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewRecomputeWorker(source MessageSource, runner Runner, logger logrus.FieldLogger, batchSize int, flushInterval time.Duration) *RecomputeWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &RecomputeWorker{
		source:        source,
		runner:        runner,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming in the background
func (w *RecomputeWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop flushes the pending batch and waits for the worker to exit
func (w *RecomputeWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *RecomputeWorker) run(ctx context.Context) {
	defer w.wg.Done()

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgCh := make(chan kafka.Message, w.batchSize)
	go w.consume(consumeCtx, msgCh)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	var batch []kafka.Message
	for {
		select {
		case <-w.stopCh:
			cancel()
			for drained := false; !drained; {
				select {
				case msg := <-msgCh:
					batch = append(batch, msg)
				default:
					drained = true
				}
			}
			if len(batch) > 0 {
				// The parent context may already be done; give the last
				// batch its own budget.
				flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
				w.Flush(flushCtx, batch)
				flushCancel()
			}
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if len(batch) > 0 {
				w.logger.WithField("messages", len(batch)).Debug("Flush interval reached")
				w.Flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgCh:
			batch = append(batch, msg)
			if len(batch) >= w.batchSize {
				w.logger.WithField("messages", len(batch)).Debug("Batch full")
				w.Flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (w *RecomputeWorker) consume(ctx context.Context, out chan<- kafka.Message) {
	for {
		msg, err := w.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.LogError(w.logger, "queue", "consume", "fetching recompute request", nil, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// recomputeJob is a decoded request with its period resolved.
type recomputeJob struct {
	storeID string
	typ     period.Type
	window  alignment.Window
}

// key identifies jobs that would write the same snapshot. It uses the
// resolved period end, so an empty end and the explicit date of the same
// period coalesce.
func (j recomputeJob) key() string {
	return j.storeID + "|" + string(j.typ) + "|" + j.window.End.Format(time.DateOnly)
}

// Flush processes one batch and commits it.
func (w *RecomputeWorker) Flush(ctx context.Context, batch []kafka.Message) BatchStats {
	stats := BatchStats{Received: len(batch)}

	seen := make(map[string]struct{}, len(batch))
	var unique []recomputeJob
	for _, msg := range batch {
		req, err := protocol.DecodeRecomputeRequest(msg.Value)
		if err != nil {
			// Malformed requests are committed with the batch and dropped.
			stats.Invalid++
			logging.LogError(w.logger, "queue", "Flush", "decoding recompute request",
				logrus.Fields{"partition": msg.Partition, "offset": msg.Offset}, err)
			continue
		}
		job, err := w.resolve(req)
		if err != nil {
			stats.Failed++
			logging.LogError(w.logger, "queue", "Flush", "resolving recompute period",
				logrus.Fields{"store_id": req.StoreID, "period_type": req.PeriodType, "period_end": req.PeriodEnd}, err)
			continue
		}
		if _, ok := seen[job.key()]; ok {
			continue
		}
		seen[job.key()] = struct{}{}
		unique = append(unique, job)
	}
	stats.Unique = len(unique)

	for _, job := range unique {
		if err := w.process(ctx, job); err != nil {
			stats.Failed++
			logging.LogError(w.logger, "queue", "Flush", "running recompute request",
				logrus.Fields{"store_id": job.storeID, "period_type": job.typ, "period_end": job.window.End.Format(time.DateOnly)}, err)
			continue
		}
		stats.Persisted++
	}

	if err := w.source.Commit(ctx, batch...); err != nil {
		logging.LogError(w.logger, "queue", "Flush", "committing offsets", nil, err)
	}

	w.logger.WithFields(logrus.Fields{
		"received":  stats.Received,
		"invalid":   stats.Invalid,
		"unique":    stats.Unique,
		"persisted": stats.Persisted,
		"failed":    stats.Failed,
	}).Info("Recompute batch flushed")

	return stats
}

var errNotPersisted = errors.New("snapshot not persisted")

// resolve maps a request to its period. An empty end means the previous
// completed period at the time of the flush.
func (w *RecomputeWorker) resolve(req *protocol.RecomputeRequest) (recomputeJob, error) {
	t, err := period.ParseType(req.PeriodType)
	if err != nil {
		return recomputeJob{}, err
	}

	var win alignment.Window
	if req.PeriodEnd == "" {
		win, err = period.PreviousCompleted(t, w.now())
	} else {
		var end time.Time
		end, err = time.Parse(time.DateOnly, req.PeriodEnd)
		if err == nil {
			win, err = period.ForEnd(t, end)
		}
	}
	if err != nil {
		return recomputeJob{}, err
	}
	return recomputeJob{storeID: req.StoreID, typ: t, window: win}, nil
}

func (w *RecomputeWorker) process(ctx context.Context, job recomputeJob) error {
	out, err := w.runner.Run(ctx, job.storeID, job.typ, job.window)
	if err != nil {
		return err
	}
	if !out.Persisted {
		return errNotPersisted
	}
	return nil
}
