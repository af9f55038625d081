package scoring

import (
	"math"

	"github.com/smukkama/growth-index/internal/metric"
)

// ImplausibleChangePercent bounds the magnitude of a believable change.
// Anything larger is treated as a data-quality artifact.
const ImplausibleChangePercent = 500.0

// ChangeStatus explains why a change is or is not available.
type ChangeStatus string

const (
	ChangeOK          ChangeStatus = "ok"
	ChangeNoBaseline  ChangeStatus = "no_baseline"
	ChangeImplausible ChangeStatus = "implausible"
)

// YoYChange returns (current - previous) / previous * 100. The result is
// absent when either side is missing, when previous is zero, or when the
// magnitude exceeds ImplausibleChangePercent.
func YoYChange(current, previous metric.Value) (metric.Value, ChangeStatus) {
	cur, curOK := current.Get()
	prev, prevOK := previous.Get()
	if !curOK || !prevOK || prev == 0 {
		return metric.Absent(), ChangeNoBaseline
	}

	pct := (cur - prev) / math.Abs(prev) * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return metric.Absent(), ChangeNoBaseline
	}
	if math.Abs(pct) > ImplausibleChangePercent {
		return metric.Absent(), ChangeImplausible
	}
	return metric.Present(pct), ChangeOK
}
