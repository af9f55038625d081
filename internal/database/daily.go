package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smukkama/growth-index/internal/metric"
)

// Daily rollups per source. Every query takes (store_id, start, end) with
// both dates inclusive and returns one row per day that has data.
var sourceTables = map[metric.Source]sourceTable{
	metric.SourceSearch: {
		query: `
			SELECT date,
			       SUM(clicks),
			       SUM(impressions),
			       SUM(position * impressions)
			FROM search_console_daily
			WHERE store_id = $1 AND date BETWEEN $2 AND $3
			GROUP BY date
			ORDER BY date
		`,
		columns: []string{metric.Clicks, metric.Impressions, metric.PositionWeighted},
	},
	metric.SourceWeb: {
		query: `
			SELECT date,
			       SUM(sessions),
			       SUM(engaged_sessions)
			FROM analytics_daily
			WHERE store_id = $1 AND date BETWEEN $2 AND $3
			GROUP BY date
			ORDER BY date
		`,
		columns: []string{metric.Sessions, metric.EngagedSessions},
	},
	metric.SourceCommerce: {
		query: `
			SELECT created_at::date AS day,
			       SUM(total_price),
			       COUNT(*),
			       COUNT(DISTINCT customer_id),
			       SUM(units)
			FROM orders
			WHERE store_id = $1
			  AND created_at >= $2
			  AND created_at < $3::date + INTERVAL '1 day'
			  AND cancelled_at IS NULL
			GROUP BY day
			ORDER BY day
		`,
		columns: []string{metric.Revenue, metric.Orders, metric.Customers, metric.UnitsSold},
	},
	metric.SourceInventory: {
		query: `
			SELECT date,
			       SUM(units_on_hand),
			       SUM(in_stock_skus),
			       SUM(total_skus)
			FROM inventory_daily
			WHERE store_id = $1 AND date BETWEEN $2 AND $3
			GROUP BY date
			ORDER BY date
		`,
		columns: []string{metric.UnitsOnHand, metric.InStockSKUs, metric.TotalSKUs},
	},
}

// DailyTotals returns per-day sums of one source for a store.
func (db *DB) DailyTotals(ctx context.Context, src metric.Source, storeID string, start, end time.Time) ([]DailyRow, error) {
	table, ok := sourceTables[src]
	if !ok {
		return nil, fmt.Errorf("no table for source %q", src)
	}

	rows, err := db.QueryContext(ctx, table.query, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s totals: %w", src, err)
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		row, err := scanDaily(rows, src, table.columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s totals: %w", src, err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func scanDaily(rows *sql.Rows, src metric.Source, columns []string) (DailyRow, error) {
	var date time.Time
	values := make([]sql.NullFloat64, len(columns))
	dest := []any{&date}

	// Order totals are NUMERIC money; read them exactly before converting.
	var revenue decimal.NullDecimal
	for i, name := range columns {
		if src == metric.SourceCommerce && name == metric.Revenue {
			dest = append(dest, &revenue)
			continue
		}
		dest = append(dest, &values[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return DailyRow{}, err
	}

	out := DailyRow{Date: date, Columns: make(map[string]sql.NullFloat64, len(columns))}
	for i, name := range columns {
		if src == metric.SourceCommerce && name == metric.Revenue {
			out.Columns[name] = sql.NullFloat64{Float64: revenue.Decimal.InexactFloat64(), Valid: revenue.Valid}
			continue
		}
		out.Columns[name] = values[i]
	}
	return out, nil
}
