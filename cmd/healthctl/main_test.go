package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointsJSON = `[
  {"date": "2025-06-02", "source": "search", "metric": "clicks", "value": 1200},
  {"date": "2024-06-02", "source": "search", "metric": "clicks", "value": 1000}
]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		jsonOutput = false
		pointsFile = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writePoints(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.json")
	require.NoError(t, os.WriteFile(path, []byte(pointsJSON), 0o600))
	return path
}

func TestComputeFromPointsFile(t *testing.T) {
	out, err := execute(t, "compute", "--store", "store-1", "--start", "2025-06-02", "--end", "2025-06-08",
		"--points", writePoints(t), "--json")
	require.NoError(t, err)

	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "store-1", res.StoreID)
	assert.Equal(t, 100, res.Categories.Growth.Components[0].Score)
}

func TestComputeTable(t *testing.T) {
	out, err := execute(t, "compute", "--store", "store-1", "--start", "2025-06-02", "--end", "2025-06-08",
		"--points", writePoints(t))
	require.NoError(t, err)
	assert.Contains(t, out, "organicClicks")
	assert.Contains(t, out, "+20.0%")
}

func TestComputeRejectsBadDates(t *testing.T) {
	_, err := execute(t, "compute", "--store", "store-1", "--start", "yesterday", "--end", "2025-06-08",
		"--points", writePoints(t))
	assert.ErrorContains(t, err, "invalid --start")

	_, err = execute(t, "compute", "--store", "store-1", "--start", "2025-06-08", "--end", "2025-06-02",
		"--points", writePoints(t))
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)

	w, err := resolveWindow(period.Week, "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), w.End)

	w, err = resolveWindow(period.Month, "2025-02-28", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)

	_, err = resolveWindow(period.Month, "2025-02-27", now)
	assert.Error(t, err)
	_, err = resolveWindow(period.Week, "June", now)
	assert.ErrorContains(t, err, "invalid --end")
}
