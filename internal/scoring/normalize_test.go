package scoring

import (
	"math"
	"testing"

	"github.com/smukkama/growth-index/internal/metric"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeBoundaries(t *testing.T) {
	tests := []struct {
		name string
		pct  metric.Value
		want int
	}{
		{"absent is neutral", metric.Absent(), 50},
		{"strong growth boundary", metric.Present(20), 100},
		{"far above", metric.Present(350), 100},
		{"just below strong growth", metric.Present(19.999), 80},
		{"growth boundary", metric.Present(10), 80},
		{"just below growth", metric.Present(9.999), 60},
		{"slight growth boundary", metric.Present(1), 60},
		{"flat upper", metric.Present(0.999), 50},
		{"zero", metric.Present(0), 50},
		{"flat lower", metric.Present(-0.5), 50},
		{"slight decline boundary", metric.Present(-1), 30},
		{"just above decline", metric.Present(-9.999), 30},
		{"decline boundary", metric.Present(-10), 10},
		{"collapse", metric.Present(-95), 10},
		{"nan is neutral", metric.Present(math.NaN()), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.pct))
		})
	}
}

func TestNormalizeMonotonic(t *testing.T) {
	prev := Normalize(metric.Present(-1000))
	for x := -1000.0; x <= 1000.0; x += 0.25 {
		got := Normalize(metric.Present(x))
		assert.GreaterOrEqual(t, got, prev, "score dropped at %.2f%%", x)
		prev = got
	}
}

func TestNormalizeChangeLowerIsBetter(t *testing.T) {
	// Average position falling by 25% is an improvement.
	assert.Equal(t, 100, NormalizeChange(metric.Present(-25), LowerIsBetter))
	assert.Equal(t, 10, NormalizeChange(metric.Present(25), LowerIsBetter))
	assert.Equal(t, 50, NormalizeChange(metric.Absent(), LowerIsBetter))
	assert.Equal(t, 100, NormalizeChange(metric.Present(25), HigherIsBetter))
}

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		name           string
		v              metric.Value
		excellent, bad float64
		want           int
	}{
		{"absent", metric.Absent(), 95, 60, 50},
		{"at excellent", metric.Present(95), 95, 60, 100},
		{"above excellent clamps", metric.Present(100), 95, 60, 100},
		{"at poor", metric.Present(60), 95, 60, 0},
		{"below poor clamps", metric.Present(10), 95, 60, 0},
		{"midpoint", metric.Present(77.5), 95, 60, 50},
		{"lower is better midpoint", metric.Present(75), 30, 120, 50},
		{"lower is better excellent", metric.Present(12), 30, 120, 100},
		{"lower is better poor", metric.Present(365), 30, 120, 0},
		{"degenerate anchors", metric.Present(5), 10, 10, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLevel(tt.v, tt.excellent, tt.bad))
		})
	}
}

func TestYoYChange(t *testing.T) {
	tests := []struct {
		name       string
		cur, prev  metric.Value
		wantOK     bool
		wantPct    float64
		wantStatus ChangeStatus
	}{
		{"growth", metric.Present(1200), metric.Present(1000), true, 20, ChangeOK},
		{"decline", metric.Present(900), metric.Present(1000), true, -10, ChangeOK},
		{"flat zeros", metric.Present(0), metric.Present(0), false, 0, ChangeNoBaseline},
		{"zero baseline", metric.Present(50), metric.Present(0), false, 0, ChangeNoBaseline},
		{"missing previous", metric.Present(50), metric.Absent(), false, 0, ChangeNoBaseline},
		{"missing current", metric.Absent(), metric.Present(50), false, 0, ChangeNoBaseline},
		{"implausible spike", metric.Present(7000), metric.Present(1000), false, 0, ChangeImplausible},
		{"exactly at sanity bound", metric.Present(6000), metric.Present(1000), true, 500, ChangeOK},
		{"total collapse is plausible", metric.Present(0), metric.Present(1000), true, -100, ChangeOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, status := YoYChange(tt.cur, tt.prev)
			assert.Equal(t, tt.wantStatus, status)
			got, ok := pct.Get()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantPct, got, 1e-9)
			}
		})
	}
}
