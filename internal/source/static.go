package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/smukkama/growth-index/internal/metric"
)

// StaticFetcher serves points held in memory. Errors set per source are
// returned instead of data, which is how fetch failures are simulated.
type StaticFetcher struct {
	Points map[metric.Source][]metric.Point
	Errors map[metric.Source]error
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		Points: make(map[metric.Source][]metric.Point),
		Errors: make(map[metric.Source]error),
	}
}

// Add appends a present value.
func (f *StaticFetcher) Add(src metric.Source, name string, date time.Time, v float64) *StaticFetcher {
	f.Points[src] = append(f.Points[src], metric.Point{Date: date, Source: src, Metric: name, Value: metric.Present(v)})
	return f
}

func (f *StaticFetcher) FetchTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Errors[src]; err != nil {
		return nil, err
	}

	startDay, endDay := metric.Day(start), metric.Day(end)
	var out []metric.Point
	for _, p := range f.Points[src] {
		d := metric.Day(p.Date)
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type staticPoint struct {
	Date   string       `json:"date"`
	Source string       `json:"source"`
	Metric string       `json:"metric"`
	Value  metric.Value `json:"value"`
}

// LoadStaticFetcher reads a JSON array of
// {"date":"YYYY-MM-DD","source":"search","metric":"clicks","value":12}.
func LoadStaticFetcher(r io.Reader) (*StaticFetcher, error) {
	var raw []staticPoint
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode points: %w", err)
	}

	f := NewStaticFetcher()
	for i, p := range raw {
		src, err := metric.ParseSource(p.Source)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		date, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		f.Points[src] = append(f.Points[src], metric.Point{Date: date, Source: src, Metric: p.Metric, Value: p.Value})
	}
	return f, nil
}
