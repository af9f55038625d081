package scoring

import (
	"math"

	"github.com/smukkama/growth-index/internal/metric"
)

// Category weights. They must sum to 1.0.
const (
	WeightEfficiency = 0.40
	WeightGrowth     = 0.25
	WeightLeverage   = 0.20
	WeightQuality    = 0.15
)

// Thresholds that map the overall value to a level.
const (
	ThresholdExcellent = 80
	ThresholdGood      = 60
	ThresholdNeedsWork = 40
)

// Weight returns the fixed weight of a category.
func Weight(c Category) float64 {
	switch c {
	case CategoryEfficiency:
		return WeightEfficiency
	case CategoryGrowth:
		return WeightGrowth
	case CategoryLeverage:
		return WeightLeverage
	case CategoryQuality:
		return WeightQuality
	default:
		return 0
	}
}

// NewComponent scores a year-over-year component from its raw values.
func NewComponent(id string, current, previous metric.Value, dir Direction) (Component, ChangeStatus) {
	pct, status := YoYChange(current, previous)
	return Component{
		ID:               id,
		Current:          current.Ptr(),
		Previous:         previous.Ptr(),
		YoYChangePercent: pct.Ptr(),
		Score:            NormalizeChange(pct, dir),
	}, status
}

// NewLevelComponent scores an absolute-level component. It carries no
// comparison values.
func NewLevelComponent(id string, current metric.Value, excellent, poor float64) Component {
	return Component{
		ID:      id,
		Current: current.Ptr(),
		Score:   NormalizeLevel(current, excellent, poor),
	}
}

// Aggregate is the rounded unweighted mean of component scores. Every
// component counts, including neutral ones; an empty list is neutral.
func Aggregate(components []Component) int {
	if len(components) == 0 {
		return NeutralScore
	}
	sum := 0
	for _, c := range components {
		sum += c.Score
	}
	return int(math.Round(float64(sum) / float64(len(components))))
}

// NewCategoryScore aggregates components and attaches the category weight.
func NewCategoryScore(c Category, components []Component) CategoryScore {
	return CategoryScore{
		Score:      Aggregate(components),
		Weight:     Weight(c),
		Components: components,
	}
}

// Compose computes the weighted overall index from the four categories.
func Compose(c Categories) OverallIndex {
	value := float64(c.Efficiency.Score)*WeightEfficiency +
		float64(c.Growth.Score)*WeightGrowth +
		float64(c.Leverage.Score)*WeightLeverage +
		float64(c.Quality.Score)*WeightQuality

	v := clamp(int(math.Round(value)), 0, 100)
	return OverallIndex{Value: v, Level: LevelFromScore(v)}
}

func LevelFromScore(score int) Level {
	switch {
	case score >= ThresholdExcellent:
		return LevelExcellent
	case score >= ThresholdGood:
		return LevelGood
	case score >= ThresholdNeedsWork:
		return LevelNeedsWork
	default:
		return LevelPoor
	}
}
