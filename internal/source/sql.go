package source

import (
	"context"
	"time"

	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/metric"
)

// DailyQuerier is the part of *database.DB the SQL adapter needs.
type DailyQuerier interface {
	DailyTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]database.DailyRow, error)
}

// SQLFetcher reads daily rollups straight from Postgres.
type SQLFetcher struct {
	db DailyQuerier
}

func NewSQLFetcher(db DailyQuerier) *SQLFetcher {
	return &SQLFetcher{db: db}
}

func (f *SQLFetcher) FetchTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error) {
	rows, err := f.db.DailyTotals(ctx, src, storeID, start, end)
	if err != nil {
		return nil, err
	}

	names := metric.Names(src)
	points := make([]metric.Point, 0, len(rows)*len(names))
	for _, row := range rows {
		date := time.Date(row.Date.Year(), row.Date.Month(), row.Date.Day(), 0, 0, 0, 0, start.Location())
		for _, name := range names {
			col := row.Columns[name]
			v := metric.Absent()
			if col.Valid {
				v = metric.Present(col.Float64)
			}
			points = append(points, metric.Point{Date: date, Source: src, Metric: name, Value: v})
		}
	}
	return points, nil
}
