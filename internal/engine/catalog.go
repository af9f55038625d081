package engine

import (
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/internal/scoring"
)

// Component ids, stable across releases; snapshots and UI key on them.
const (
	OrganicClicks      = "organicClicks"
	OrganicImpressions = "organicImpressions"
	SessionsGrowth     = "sessions"
	UniqueCustomers    = "uniqueCustomers"

	EngagementRate   = "engagementRate"
	ClickThroughRate = "clickThroughRate"
	AveragePosition  = "averagePosition"

	RevenueGrowth     = "revenue"
	OrderCount        = "orderCount"
	AverageOrderValue = "averageOrderValue"
	ConversionRate    = "conversionRate"

	StockAvailability = "stockAvailability"
	DaysOfStock       = "daysOfStock"
	UnitsSoldGrowth   = "unitsSold"
)

// Level anchors.
const (
	StockAvailabilityExcellent = 95.0
	StockAvailabilityPoor      = 60.0
	DaysOfStockExcellent       = 30.0
	DaysOfStockPoor            = 120.0
)

// inputs is everything the catalog reads: the aligned period of each
// source (nil when the source failed) and the current window length.
type inputs struct {
	periods map[metric.Source]*alignment.Period
	days    int
}

func (in inputs) totals(src metric.Source, name string) alignment.Totals {
	return in.periods[src].Totals(name)
}

// pair is a current/previous comparison over matched days.
type pair struct {
	cur, prev metric.Value
}

func matched(src metric.Source, name string) func(inputs) pair {
	return func(in inputs) pair {
		t := in.totals(src, name)
		return pair{cur: t.Current, prev: t.Previous}
	}
}

// rate is num/den of matched totals, as a percentage when pct is set.
func rate(numSrc metric.Source, num string, denSrc metric.Source, den string, pct bool) func(inputs) pair {
	k := 1.0
	if pct {
		k = 100
	}
	return func(in inputs) pair {
		n, d := in.totals(numSrc, num), in.totals(denSrc, den)
		return pair{
			cur:  metric.Ratio(n.Current, d.Current).Scale(k),
			prev: metric.Ratio(n.Previous, d.Previous).Scale(k),
		}
	}
}

type componentDef struct {
	id  string
	dir scoring.Direction

	// Exactly one of yoy and level is set.
	yoy   func(inputs) pair
	level func(inputs) metric.Value

	excellent, poor float64
}

type categoryDef struct {
	category   scoring.Category
	components []componentDef
}

var catalog = []categoryDef{
	{
		category: scoring.CategoryGrowth,
		components: []componentDef{
			{id: OrganicClicks, yoy: matched(metric.SourceSearch, metric.Clicks)},
			{id: OrganicImpressions, yoy: matched(metric.SourceSearch, metric.Impressions)},
			{id: SessionsGrowth, yoy: matched(metric.SourceWeb, metric.Sessions)},
			{id: UniqueCustomers, yoy: matched(metric.SourceCommerce, metric.Customers)},
		},
	},
	{
		category: scoring.CategoryQuality,
		components: []componentDef{
			{id: EngagementRate, yoy: rate(metric.SourceWeb, metric.EngagedSessions, metric.SourceWeb, metric.Sessions, true)},
			{id: ClickThroughRate, yoy: rate(metric.SourceSearch, metric.Clicks, metric.SourceSearch, metric.Impressions, true)},
			{
				id:  AveragePosition,
				dir: scoring.LowerIsBetter,
				yoy: rate(metric.SourceSearch, metric.PositionWeighted, metric.SourceSearch, metric.Impressions, false),
			},
		},
	},
	{
		category: scoring.CategoryEfficiency,
		components: []componentDef{
			{id: RevenueGrowth, yoy: matched(metric.SourceCommerce, metric.Revenue)},
			{id: OrderCount, yoy: matched(metric.SourceCommerce, metric.Orders)},
			{id: AverageOrderValue, yoy: rate(metric.SourceCommerce, metric.Revenue, metric.SourceCommerce, metric.Orders, false)},
			{id: ConversionRate, yoy: rate(metric.SourceCommerce, metric.Orders, metric.SourceWeb, metric.Sessions, true)},
		},
	},
	{
		category: scoring.CategoryLeverage,
		components: []componentDef{
			{
				id:        StockAvailability,
				level:     stockAvailability,
				excellent: StockAvailabilityExcellent,
				poor:      StockAvailabilityPoor,
			},
			{
				id:        DaysOfStock,
				level:     daysOfStock,
				excellent: DaysOfStockExcellent,
				poor:      DaysOfStockPoor,
			},
			{id: UnitsSoldGrowth, yoy: matched(metric.SourceCommerce, metric.UnitsSold)},
		},
	},
}

// stockAvailability is the share of SKUs in stock over the whole window.
func stockAvailability(in inputs) metric.Value {
	inStock := in.totals(metric.SourceInventory, metric.InStockSKUs).CurrentWindow
	total := in.totals(metric.SourceInventory, metric.TotalSKUs).CurrentWindow
	return metric.Ratio(inStock, total).Scale(100)
}

// daysOfStock is average units on hand divided by average daily units sold.
func daysOfStock(in inputs) metric.Value {
	onHand := in.totals(metric.SourceInventory, metric.UnitsOnHand)
	sold := in.totals(metric.SourceCommerce, metric.UnitsSold)
	if onHand.CurrentDays == 0 || in.days == 0 {
		return metric.Absent()
	}
	avgOnHand := onHand.CurrentWindow.Scale(1 / float64(onHand.CurrentDays))
	dailySold := sold.CurrentWindow.Scale(1 / float64(in.days))
	return metric.Ratio(avgOnHand, dailySold)
}
