package alignment

import (
	"errors"
	"fmt"
	"time"

	"github.com/smukkama/growth-index/internal/metric"
)

var ErrInvalidWindow = errors.New("invalid window")

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow truncates both ends to whole days.
func NewWindow(start, end time.Time) Window {
	return Window{Start: metric.Day(start), End: metric.Day(end)}
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow,
			w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly))
	}
	return nil
}

// Days counts calendar days in the window, both ends included.
func (w Window) Days() int {
	if w.End.Before(w.Start) {
		return 0
	}
	n := 0
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Contains reports whether the calendar day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := metric.Day(t.In(w.Start.Location()))
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

// YearAgo returns the same calendar window one year earlier.
func YearAgo(w Window) Window {
	return Window{Start: shiftYear(w.Start), End: shiftYear(w.End)}
}

// shiftYear moves t back one calendar year. Feb 29 lands on Feb 28 rather
// than rolling forward into March.
func shiftYear(t time.Time) time.Time {
	y, m, d := t.Date()
	if m == time.February && d == 29 {
		d = 28
	}
	return time.Date(y-1, m, d, 0, 0, 0, 0, t.Location())
}
