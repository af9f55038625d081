package database

import (
	"database/sql"
	"time"
)

// SnapshotRow is one row of health_index_snapshots
type SnapshotRow struct {
	ID              string
	StoreID         string
	PeriodType      string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	PeriodLabel     string
	OverallIndex    int
	Level           string
	GrowthScore     int
	QualityScore    int
	EfficiencyScore int
	LeverageScore   int
	Breakdown       []byte // JSON
	ComputedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DailyRow is one day of one source table, with nullable columns kept as
// sql.NullFloat64 so "no data" survives the trip from Postgres.
type DailyRow struct {
	Date    time.Time
	Columns map[string]sql.NullFloat64
}

// sourceTable describes how one metric source is rolled up per day.
type sourceTable struct {
	query   string
	columns []string
}
