package scoring

import (
	"math"

	"github.com/smukkama/growth-index/internal/metric"
)

// NeutralScore means "no signal", not "average performance".
const NeutralScore = 50

// Breakpoints of the year-over-year scale, in percent.
const (
	StrongGrowthPercent = 20.0
	GrowthPercent       = 10.0
	FlatBandPercent     = 1.0
	DeclinePercent      = -10.0
)

// Direction tells whether a larger raw number is an improvement.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Normalize maps a year-over-year change in percent onto 0-100:
//
//	absent        -> 50
//	>= +20        -> 100
//	[+10, +20)    -> 80
//	[+1, +10)     -> 60
//	(-1, +1)      -> 50
//	(-10, -1]     -> 30
//	<= -10        -> 10
func Normalize(pct metric.Value) int {
	x, ok := pct.Get()
	if !ok || math.IsNaN(x) {
		return NeutralScore
	}
	switch {
	case x >= StrongGrowthPercent:
		return 100
	case x >= GrowthPercent:
		return 80
	case x >= FlatBandPercent:
		return 60
	case x > -FlatBandPercent:
		return 50
	case x > DeclinePercent:
		return 30
	default:
		return 10
	}
}

// NormalizeChange is Normalize with the change negated for lower-is-better
// metrics, so an improvement always scores higher.
func NormalizeChange(pct metric.Value, dir Direction) int {
	if dir == LowerIsBetter {
		return Normalize(pct.Scale(-1))
	}
	return Normalize(pct)
}

// NormalizeLevel interpolates linearly between a poor anchor (0) and an
// excellent anchor (100), clamped. Anchors may be in either order, which is
// how lower-is-better levels are expressed.
func NormalizeLevel(v metric.Value, excellent, poor float64) int {
	x, ok := v.Get()
	if !ok || math.IsNaN(x) || excellent == poor {
		return NeutralScore
	}
	t := (x - poor) / (excellent - poor)
	return clamp(int(math.Round(t*100)), 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
