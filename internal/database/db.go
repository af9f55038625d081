package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	logger logrus.FieldLogger
}

// Connect establishes a connection to the database
func Connect(connectionString string, logger logrus.FieldLogger) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &DB{DB: db, logger: logger}, nil
}

// RunMigrations executes all SQL migration files in order. Migrations must
// be idempotent since every file runs on each start.
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		db.logger.WithField("migration", filename).Info("Running migration")

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	db.logger.WithField("count", len(sqlFiles)).Info("All migrations completed successfully")
	return nil
}

// UpsertSnapshot inserts or replaces the snapshot for
// (store_id, period_type, period_end). The row keeps its original id on
// conflict; row.ID, CreatedAt and UpdatedAt are filled from the stored row.
func (db *DB) UpsertSnapshot(ctx context.Context, row *SnapshotRow) error {
	query := `
		INSERT INTO health_index_snapshots (
			id, store_id, period_type, period_start, period_end, period_label,
			overall_index, level, growth_score, quality_score, efficiency_score,
			leverage_score, breakdown, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (store_id, period_type, period_end) DO UPDATE
		SET period_start = EXCLUDED.period_start,
		    period_label = EXCLUDED.period_label,
		    overall_index = EXCLUDED.overall_index,
		    level = EXCLUDED.level,
		    growth_score = EXCLUDED.growth_score,
		    quality_score = EXCLUDED.quality_score,
		    efficiency_score = EXCLUDED.efficiency_score,
		    leverage_score = EXCLUDED.leverage_score,
		    breakdown = EXCLUDED.breakdown,
		    computed_at = EXCLUDED.computed_at,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at
	`

	return db.QueryRowContext(ctx, query,
		row.ID,
		row.StoreID,
		row.PeriodType,
		row.PeriodStart,
		row.PeriodEnd,
		row.PeriodLabel,
		row.OverallIndex,
		row.Level,
		row.GrowthScore,
		row.QualityScore,
		row.EfficiencyScore,
		row.LeverageScore,
		string(row.Breakdown),
		row.ComputedAt,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
}

const snapshotColumns = `
	id, store_id, period_type, period_start, period_end, period_label,
	overall_index, level, growth_score, quality_score, efficiency_score,
	leverage_score, breakdown, computed_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s rowScanner) (*SnapshotRow, error) {
	var row SnapshotRow
	err := s.Scan(
		&row.ID,
		&row.StoreID,
		&row.PeriodType,
		&row.PeriodStart,
		&row.PeriodEnd,
		&row.PeriodLabel,
		&row.OverallIndex,
		&row.Level,
		&row.GrowthScore,
		&row.QualityScore,
		&row.EfficiencyScore,
		&row.LeverageScore,
		&row.Breakdown,
		&row.ComputedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetSnapshot retrieves one snapshot by its natural key. A missing row
// returns (nil, nil).
func (db *DB) GetSnapshot(ctx context.Context, storeID, periodType string, periodEnd time.Time) (*SnapshotRow, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM health_index_snapshots
		WHERE store_id = $1 AND period_type = $2 AND period_end = $3
	`

	row, err := scanSnapshot(db.QueryRowContext(ctx, query, storeID, periodType, periodEnd))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ListSnapshots returns the latest snapshots of one period type, newest first
func (db *DB) ListSnapshots(ctx context.Context, storeID, periodType string, limit int) ([]*SnapshotRow, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM health_index_snapshots
		WHERE store_id = $1 AND period_type = $2
		ORDER BY period_end DESC
		LIMIT $3
	`

	rows, err := db.QueryContext(ctx, query, storeID, periodType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*SnapshotRow
	for rows.Next() {
		row, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, row)
	}

	return snapshots, rows.Err()
}

// ListStoreIDs returns the ids of all active stores
func (db *DB) ListStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM stores WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
