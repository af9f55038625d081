package scoring

// Component is one normalized building block of a category score.
type Component struct {
	ID               string   `json:"id"`
	Current          *float64 `json:"current"`
	Previous         *float64 `json:"previous"`
	YoYChangePercent *float64 `json:"yoyChangePercent"`
	Score            int      `json:"score"`
}

// CategoryScore is one of the four weighted sub-indices.
type CategoryScore struct {
	Score      int         `json:"score"`
	Weight     float64     `json:"weight"`
	Components []Component `json:"components"`
}

// Category names a pillar of the overall index.
type Category string

const (
	CategoryGrowth     Category = "growth"
	CategoryQuality    Category = "quality"
	CategoryEfficiency Category = "efficiency"
	CategoryLeverage   Category = "leverage"
)

func AllCategories() []Category {
	return []Category{CategoryGrowth, CategoryQuality, CategoryEfficiency, CategoryLeverage}
}

type Categories struct {
	Growth     CategoryScore `json:"growth"`
	Quality    CategoryScore `json:"quality"`
	Efficiency CategoryScore `json:"efficiency"`
	Leverage   CategoryScore `json:"leverage"`
}

// Get returns the category by name; ok is false for an unknown name.
func (c *Categories) Get(name Category) (*CategoryScore, bool) {
	switch name {
	case CategoryGrowth:
		return &c.Growth, true
	case CategoryQuality:
		return &c.Quality, true
	case CategoryEfficiency:
		return &c.Efficiency, true
	case CategoryLeverage:
		return &c.Leverage, true
	default:
		return nil, false
	}
}

type Level string

const (
	LevelPoor      Level = "poor"
	LevelNeedsWork Level = "needs_work"
	LevelGood      Level = "good"
	LevelExcellent Level = "excellent"
)

type OverallIndex struct {
	Value int   `json:"value"`
	Level Level `json:"level"`
}
