package alignment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestYearAgo(t *testing.T) {
	tests := []struct {
		name      string
		in        Window
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"plain week", Window{day(2025, 6, 2), day(2025, 6, 8)}, day(2024, 6, 2), day(2024, 6, 8)},
		{"leap day end", Window{day(2024, 2, 1), day(2024, 2, 29)}, day(2023, 2, 1), day(2023, 2, 28)},
		{"leap day start", Window{day(2024, 2, 29), day(2024, 3, 6)}, day(2023, 2, 28), day(2023, 3, 6)},
		{"into leap year", Window{day(2025, 2, 1), day(2025, 2, 28)}, day(2024, 2, 1), day(2024, 2, 28)},
		{"year boundary", Window{day(2025, 12, 29), day(2026, 1, 4)}, day(2024, 12, 29), day(2025, 1, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearAgo(tt.in)
			assert.Equal(t, tt.wantStart, got.Start)
			assert.Equal(t, tt.wantEnd, got.End)
		})
	}
}

func TestWindowDaysAndContains(t *testing.T) {
	w := NewWindow(day(2025, 6, 1).Add(13*time.Hour), day(2025, 6, 7))
	assert.Equal(t, day(2025, 6, 1), w.Start)
	assert.Equal(t, 7, w.Days())
	assert.True(t, w.Contains(day(2025, 6, 7).Add(23*time.Hour)))
	assert.False(t, w.Contains(day(2025, 6, 8)))
	assert.False(t, w.Contains(day(2025, 5, 31)))
	assert.Equal(t, "2025-06-01..2025-06-07", w.String())
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, NewWindow(day(2025, 6, 1), day(2025, 6, 1)).Validate())

	err := NewWindow(day(2025, 6, 2), day(2025, 6, 1)).Validate()
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	err = Window{}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidWindow))
	assert.Equal(t, 0, Window{Start: day(2025, 6, 2), End: day(2025, 6, 1)}.Days())
}
