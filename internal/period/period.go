// Package period derives reporting windows for scheduled snapshots.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/metric"
)

var ErrUnknownPeriodType = errors.New("unknown period type")

type Type string

const (
	Week  Type = "week"
	Month Type = "month"
)

func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriodType, s)
	}
}

// PreviousCompleted returns the last full period before now: the previous
// ISO week (Monday to Sunday) or the previous calendar month.
func PreviousCompleted(t Type, now time.Time) (alignment.Window, error) {
	today := metric.Day(now)
	switch t {
	case Week:
		// Days since Monday, with Sunday as 6.
		offset := (int(today.Weekday()) + 6) % 7
		thisMonday := today.AddDate(0, 0, -offset)
		return alignment.Window{Start: thisMonday.AddDate(0, 0, -7), End: thisMonday.AddDate(0, 0, -1)}, nil
	case Month:
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return alignment.Window{Start: firstOfMonth.AddDate(0, -1, 0), End: firstOfMonth.AddDate(0, 0, -1)}, nil
	default:
		return alignment.Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriodType, t)
	}
}

// ForEnd returns the period of type t that ends on periodEnd. A week ends on
// a Sunday and a month on its last day; any other date is rejected.
func ForEnd(t Type, periodEnd time.Time) (alignment.Window, error) {
	end := metric.Day(periodEnd)
	switch t {
	case Week:
		if end.Weekday() != time.Sunday {
			return alignment.Window{}, fmt.Errorf("week must end on a Sunday, got %s (%s)", end.Format(time.DateOnly), end.Weekday())
		}
		return alignment.Window{Start: end.AddDate(0, 0, -6), End: end}, nil
	case Month:
		if end.AddDate(0, 0, 1).Day() != 1 {
			return alignment.Window{}, fmt.Errorf("month must end on its last day, got %s", end.Format(time.DateOnly))
		}
		return alignment.Window{Start: time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location()), End: end}, nil
	default:
		return alignment.Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriodType, t)
	}
}

// Label names a window for display: 2025-W23 for an ISO week, 2025-06 for a
// calendar month and start..end for anything else.
func Label(t Type, w alignment.Window) string {
	switch t {
	case Week:
		if w.Start.Weekday() == time.Monday && w.Days() == 7 {
			year, week := w.Start.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}
	case Month:
		if w.Start.Day() == 1 && w.End.AddDate(0, 0, 1).Day() == 1 &&
			w.Start.Year() == w.End.Year() && w.Start.Month() == w.End.Month() {
			return w.Start.Format("2006-01")
		}
	}
	return w.String()
}
