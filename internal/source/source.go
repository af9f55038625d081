// Package source holds the metric source adapters. Each adapter returns the
// raw daily points of one upstream domain for a store and a date range.
package source

import (
	"context"
	"time"

	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/pkg/config"
)

// Fetcher reads daily points of one source for [start, end], both days
// inclusive. Implementations must be safe for concurrent use.
type Fetcher interface {
	FetchTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error)

func (f FetcherFunc) FetchTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error) {
	return f(ctx, src, storeID, start, end)
}

// FromConfig returns the REST adapter when an upstream base URL is set and
// the Postgres adapter otherwise. db may be nil in the REST case.
func FromConfig(cfg config.UpstreamConfig, db DailyQuerier) Fetcher {
	if cfg.BaseURL != "" {
		return NewRESTFetcher(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	}
	return NewSQLFetcher(db)
}
