package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/smukkama/growth-index/internal/metric"
)

// restViews maps each source to the daily rollup view exposed by the
// hosted REST backend.
var restViews = map[metric.Source]string{
	metric.SourceSearch:    "search_daily_totals",
	metric.SourceWeb:       "analytics_daily_totals",
	metric.SourceCommerce:  "commerce_daily_totals",
	metric.SourceInventory: "inventory_daily_totals",
}

// RESTFetcher reads daily rollups from a PostgREST-style backend.
type RESTFetcher struct {
	client *resty.Client
}

func NewRESTFetcher(baseURL, apiKey string, timeout time.Duration) *RESTFetcher {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey)
		client.SetAuthToken(apiKey)
	}

	return &RESTFetcher{client: client}
}

func (f *RESTFetcher) FetchTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]metric.Point, error) {
	view, ok := restViews[src]
	if !ok {
		return nil, fmt.Errorf("no view for source %q", src)
	}
	names := metric.Names(src)

	params := url.Values{}
	params.Set("select", "date,"+strings.Join(names, ","))
	params.Set("store_id", "eq."+storeID)
	params.Add("date", "gte."+start.Format(time.DateOnly))
	params.Add("date", "lte."+end.Format(time.DateOnly))
	params.Set("order", "date.asc")

	var rows []map[string]json.RawMessage
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&rows).
		Get("/rest/v1/" + view)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s totals: %w", src, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s totals: status %d: %s", src, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	points := make([]metric.Point, 0, len(rows)*len(names))
	for _, row := range rows {
		date, err := parseRowDate(row["date"], start.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid %s row: %w", src, err)
		}
		for _, name := range names {
			v, err := parseRowValue(row[name])
			if err != nil {
				return nil, fmt.Errorf("invalid %s.%s on %s: %w", src, name, date.Format(time.DateOnly), err)
			}
			points = append(points, metric.Point{Date: date, Source: src, Metric: name, Value: v})
		}
	}
	return points, nil
}

func parseRowDate(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("date: %w", err)
	}
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return time.ParseInLocation(time.DateOnly, s, loc)
}

// parseRowValue accepts JSON numbers, quoted numerics and null.
func parseRowValue(raw json.RawMessage) (metric.Value, error) {
	if len(raw) == 0 {
		return metric.Absent(), nil
	}
	var d decimal.NullDecimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return metric.Absent(), err
	}
	if !d.Valid {
		return metric.Absent(), nil
	}
	return metric.Present(d.Decimal.InexactFloat64()), nil
}
