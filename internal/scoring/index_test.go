package scoring

import (
	"testing"

	"github.com/smukkama/growth-index/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, c := range AllCategories() {
		sum += Weight(c)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Zero(t, Weight(Category("unknown")))
}

func TestComposeAllPerfect(t *testing.T) {
	perfect := CategoryScore{Score: 100}
	idx := Compose(Categories{Growth: perfect, Quality: perfect, Efficiency: perfect, Leverage: perfect})
	assert.Equal(t, 100, idx.Value)
	assert.Equal(t, LevelExcellent, idx.Level)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, NeutralScore, Aggregate(nil))

	allNeutral := []Component{{Score: 50}, {Score: 50}, {Score: 50}}
	assert.Equal(t, 50, Aggregate(allNeutral))

	// (100+60+50+80)/4 = 72.5 rounds up.
	assert.Equal(t, 73, Aggregate([]Component{{Score: 100}, {Score: 60}, {Score: 50}, {Score: 80}}))
	assert.Equal(t, 33, Aggregate([]Component{{Score: 10}, {Score: 30}, {Score: 60}}))
}

func TestCategoryOfAbsentComponentsIsNeutral(t *testing.T) {
	var components []Component
	for _, id := range []string{"a", "b", "c"} {
		c, status := NewComponent(id, metric.Present(10), metric.Absent(), HigherIsBetter)
		assert.Equal(t, ChangeNoBaseline, status)
		assert.Nil(t, c.YoYChangePercent)
		components = append(components, c)
	}
	cat := NewCategoryScore(CategoryQuality, components)
	assert.Equal(t, 50, cat.Score)
	assert.Equal(t, WeightQuality, cat.Weight)
}

func TestEndToEndScenario(t *testing.T) {
	clicks, status := NewComponent("organicClicks", metric.Present(1200), metric.Present(1000), HigherIsBetter)
	require.Equal(t, ChangeOK, status)
	require.NotNil(t, clicks.YoYChangePercent)
	assert.InDelta(t, 20.0, *clicks.YoYChangePercent, 1e-9)
	assert.Equal(t, 100, clicks.Score)

	growth := NewCategoryScore(CategoryGrowth, []Component{
		clicks,
		{ID: "organicImpressions", Score: 60},
		{ID: "sessions", Score: 50},
		{ID: "uniqueCustomers", Score: 80},
	})
	assert.Equal(t, 73, growth.Score)

	neutral := CategoryScore{Score: 50}
	idx := Compose(Categories{Growth: growth, Quality: neutral, Efficiency: neutral, Leverage: neutral})
	assert.Equal(t, 56, idx.Value)
	assert.Equal(t, LevelNeedsWork, idx.Level)
}

func TestLevelFromScore(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{100, LevelExcellent},
		{80, LevelExcellent},
		{79, LevelGood},
		{60, LevelGood},
		{59, LevelNeedsWork},
		{40, LevelNeedsWork},
		{39, LevelPoor},
		{0, LevelPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromScore(tt.score), "score %d", tt.score)
	}
}

func TestLevelComponentHasNoComparison(t *testing.T) {
	c := NewLevelComponent("stockAvailability", metric.Present(95), 95, 60)
	assert.Equal(t, 100, c.Score)
	assert.Nil(t, c.Previous)
	assert.Nil(t, c.YoYChangePercent)
	require.NotNil(t, c.Current)
	assert.Equal(t, 95.0, *c.Current)
}

func TestCategoriesGet(t *testing.T) {
	var cats Categories
	g, ok := cats.Get(CategoryGrowth)
	require.True(t, ok)
	g.Score = 70
	assert.Equal(t, 70, cats.Growth.Score)

	_, ok = cats.Get("unknown")
	assert.False(t, ok)
}
