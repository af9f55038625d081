// Package alignment matches a current window against its year-ago window
// day by day, so that year-over-year totals only cover days with data on
// both sides.
package alignment

import (
	"sort"

	"github.com/smukkama/growth-index/internal/metric"
)

// Totals holds the aligned sums for one metric.
type Totals struct {
	Current     metric.Value
	Previous    metric.Value
	MatchedDays int
	// CurrentWindow sums every current-window day, matched or not. It is
	// only meaningful for absolute-level metrics that need no comparison.
	CurrentWindow metric.Value
	// CurrentDays counts current-window days with data, matched or not.
	CurrentDays int
}

// Period is the aligned view of one source over a current/previous pair.
type Period struct {
	totals  map[string]Totals
	matched map[string]struct{}
}

// Totals returns the aligned sums for a metric. A metric with no data at
// all yields absent values and zero matched days.
func (p *Period) Totals(name string) Totals {
	if p == nil {
		return Totals{}
	}
	return p.totals[name]
}

// MatchedDays counts distinct month-day keys matched for any metric.
func (p *Period) MatchedDays() int {
	if p == nil {
		return 0
	}
	return len(p.matched)
}

// Metrics lists the metric names seen in either window, sorted.
func (p *Period) Metrics() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.totals))
	for name := range p.totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Align builds per-metric totals restricted to days present in both
// windows. Points outside their window and absent values are ignored;
// several points for the same day are summed first. A day present on only
// one side contributes to neither total.
func Align(current Window, cur []metric.Point, previous Window, prev []metric.Point) *Period {
	curDays := byDay(current, cur)
	prevDays := byDay(previous, prev)

	p := &Period{
		totals:  make(map[string]Totals),
		matched: make(map[string]struct{}),
	}

	for name, days := range curDays {
		t := p.totals[name]
		prevForMetric := prevDays[name]
		for key, v := range days {
			t.CurrentWindow = t.CurrentWindow.Add(v)
			t.CurrentDays++
			pv, ok := prevForMetric[key]
			if !ok {
				continue
			}
			t.Current = t.Current.Add(v)
			t.Previous = t.Previous.Add(pv)
			t.MatchedDays++
			p.matched[key] = struct{}{}
		}
		p.totals[name] = t
	}

	// Metrics that only exist in the previous window still get an entry so
	// callers can tell "never reported" from "reported, nothing matched".
	for name := range prevDays {
		if _, ok := p.totals[name]; !ok {
			p.totals[name] = Totals{}
		}
	}

	return p
}

// byDay groups present in-window values by metric name and day key.
func byDay(w Window, points []metric.Point) map[string]map[string]metric.Value {
	out := make(map[string]map[string]metric.Value)
	for _, pt := range points {
		if !pt.Value.IsPresent() || !w.Contains(pt.Date) {
			continue
		}
		days, ok := out[pt.Metric]
		if !ok {
			days = make(map[string]metric.Value)
			out[pt.Metric] = days
		}
		key := metric.DayKey(pt.Date.In(w.Start.Location()))
		days[key] = days[key].Add(pt.Value)
	}
	return out
}
