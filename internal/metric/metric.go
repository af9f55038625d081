package metric

import (
	"fmt"
	"time"
)

// Source identifies the upstream data domain a point was read from.
type Source string

const (
	SourceSearch    Source = "search"
	SourceWeb       Source = "web-analytics"
	SourceCommerce  Source = "commerce"
	SourceInventory Source = "inventory"
)

// AllSources returns every source in a fixed order.
func AllSources() []Source {
	return []Source{SourceSearch, SourceWeb, SourceCommerce, SourceInventory}
}

func ParseSource(s string) (Source, error) {
	for _, src := range AllSources() {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown metric source: %q", s)
}

// Metric names, grouped by source.
const (
	Clicks           = "clicks"
	Impressions      = "impressions"
	PositionWeighted = "position_weighted" // average position × impressions

	Sessions        = "sessions"
	EngagedSessions = "engaged_sessions"

	Revenue   = "revenue"
	Orders    = "orders"
	Customers = "customers"
	UnitsSold = "units_sold"

	UnitsOnHand = "units_on_hand"
	InStockSKUs = "in_stock_skus"
	TotalSKUs   = "total_skus"
)

// Names returns the metric names a source reports.
func Names(src Source) []string {
	switch src {
	case SourceSearch:
		return []string{Clicks, Impressions, PositionWeighted}
	case SourceWeb:
		return []string{Sessions, EngagedSessions}
	case SourceCommerce:
		return []string{Revenue, Orders, Customers, UnitsSold}
	case SourceInventory:
		return []string{UnitsOnHand, InStockSKUs, TotalSKUs}
	default:
		return nil
	}
}

// Point is one daily observation of one metric.
type Point struct {
	Date   time.Time
	Source Source
	Metric string
	Value  Value
}

// DayKey returns the month-day key ("MM-DD") used to match days across years.
func DayKey(t time.Time) string {
	return t.Format("01-02")
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
