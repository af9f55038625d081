// Package engine runs the health index pipeline for one store and one date
// range: fetch every source for the current and year-ago windows, align,
// score each component, aggregate categories and compose the overall index.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/internal/scoring"
	"github.com/smukkama/growth-index/internal/source"
)

var ErrInvalidRequest = errors.New("invalid request")

// Request names the store and the current window, both days inclusive.
type Request struct {
	StoreID string
	Start   time.Time
	End     time.Time
}

// Result is the full computation, ready to render or persist.
type Result struct {
	StoreID         string                   `json:"storeId"`
	PeriodStart     time.Time                `json:"periodStart"`
	PeriodEnd       time.Time                `json:"periodEnd"`
	ComparisonStart time.Time                `json:"comparisonStart"`
	ComparisonEnd   time.Time                `json:"comparisonEnd"`
	OverallIndex    scoring.OverallIndex     `json:"overallIndex"`
	Categories      scoring.Categories       `json:"categories"`
	MatchedDays     map[metric.Source]int    `json:"matchedDays"`
	SourceErrors    map[metric.Source]string `json:"sourceErrors,omitempty"`
	ComputedAt      time.Time                `json:"computedAt"`
}

// Window returns the current window of the result.
func (r *Result) Window() alignment.Window {
	return alignment.Window{Start: r.PeriodStart, End: r.PeriodEnd}
}

// Engine is safe for concurrent use; computations share no state.
type Engine struct {
	fetcher source.Fetcher
	logger  logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(fetcher source.Fetcher, logger logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fetchSlot struct {
	points []metric.Point
	err    error
}

// Compute runs the pipeline. Source failures degrade the affected
// components to neutral and are reported in Result.SourceErrors; only an
// invalid request or a cancelled context returns an error.
func (e *Engine) Compute(ctx context.Context, req Request) (*Result, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return nil, fmt.Errorf("%w: store id is required", ErrInvalidRequest)
	}
	current := alignment.NewWindow(req.Start, req.End)
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	previous := alignment.YearAgo(current)

	sources := metric.AllSources()
	windows := [2]alignment.Window{current, previous}

	// One slot per (source, window); each goroutine writes only its own.
	slots := make([]fetchSlot, len(sources)*len(windows))
	var wg sync.WaitGroup
	for i, src := range sources {
		for j, w := range windows {
			wg.Add(1)
			go func(slot int, src metric.Source, w alignment.Window) {
				defer wg.Done()
				points, err := e.fetcher.FetchTotals(ctx, src, storeID, w.Start, w.End)
				slots[slot] = fetchSlot{points: points, err: err}
			}(i*len(windows)+j, src, w)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		StoreID:         storeID,
		PeriodStart:     current.Start,
		PeriodEnd:       current.End,
		ComparisonStart: previous.Start,
		ComparisonEnd:   previous.End,
		MatchedDays:     make(map[metric.Source]int, len(sources)),
		ComputedAt:      e.now().UTC(),
	}

	in := inputs{periods: make(map[metric.Source]*alignment.Period, len(sources)), days: current.Days()}
	for i, src := range sources {
		cur, prev := slots[i*len(windows)], slots[i*len(windows)+1]
		if err := errors.Join(cur.err, prev.err); err != nil {
			if result.SourceErrors == nil {
				result.SourceErrors = make(map[metric.Source]string)
			}
			result.SourceErrors[src] = describeFailure(cur.err, prev.err, current, previous)
			logging.LogError(e.logger, "engine", "Compute", "fetching source totals",
				logrus.Fields{"store_id": storeID, "source": src, "window": current.String()}, err)
		}
		if cur.err != nil {
			result.MatchedDays[src] = 0
			continue
		}

		// A failed year-ago fetch leaves nothing to match, but the current
		// window still feeds the level components.
		prevPoints := prev.points
		if prev.err != nil {
			prevPoints = nil
		}
		period := alignment.Align(current, cur.points, previous, prevPoints)
		in.periods[src] = period
		result.MatchedDays[src] = period.MatchedDays()
	}

	for _, def := range catalog {
		components := make([]scoring.Component, 0, len(def.components))
		for _, c := range def.components {
			components = append(components, e.evaluate(storeID, c, in))
		}
		score, _ := result.Categories.Get(def.category)
		*score = scoring.NewCategoryScore(def.category, components)
	}
	result.OverallIndex = scoring.Compose(result.Categories)

	e.logger.WithFields(logrus.Fields{
		"store_id":      storeID,
		"window":        current.String(),
		"overall_index": result.OverallIndex.Value,
		"level":         result.OverallIndex.Level,
		"failed":        len(result.SourceErrors),
	}).Debug("Computed health index")

	return result, nil
}

func (e *Engine) evaluate(storeID string, c componentDef, in inputs) scoring.Component {
	if c.level != nil {
		return scoring.NewLevelComponent(c.id, c.level(in), c.excellent, c.poor)
	}

	p := c.yoy(in)
	component, status := scoring.NewComponent(c.id, p.cur, p.prev, c.dir)
	if status == scoring.ChangeImplausible {
		e.logger.WithFields(logrus.Fields{
			"store_id":  storeID,
			"component": c.id,
			"current":   p.cur.String(),
			"previous":  p.prev.String(),
		}).Warn("Implausible year-over-year change, scoring as neutral")
	}
	return component
}

// describeFailure names the failed window when only one failed and reports
// a cause shared by both windows once.
func describeFailure(cur, prev error, current, previous alignment.Window) string {
	switch {
	case prev == nil:
		return fmt.Sprintf("current window %s: %v", current, cur)
	case cur == nil:
		return fmt.Sprintf("previous window %s: %v", previous, prev)
	case cur.Error() == prev.Error():
		return cur.Error()
	default:
		return fmt.Sprintf("current window %s: %v; previous window %s: %v", current, cur, previous, prev)
	}
}
