package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/projection"
)

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	v := 120.0
	res := projection.Result[map[string]model.ProjectionRow]{
		Success: true,
		Data: map[string]model.ProjectionRow{
			"R1": {RequestID: "R1", ProjectedRevenue: &v, Source: model.SourceActualDeal, Confidence: model.ConfidenceHigh, Bucket: model.BucketBooked},
		},
	}

	require.NoError(t, writeOutput(&buf, "json", res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
	row := decoded["data"].(map[string]any)["R1"].(map[string]any)
	assert.Equal(t, 120.0, row["projected_revenue"])
	assert.Equal(t, "actual_deal", row["source"])
}

func TestWriteOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	res := projection.Result[projection.Summaries]{
		Success: true,
		Data: projection.Summaries{
			"b1": {TotalProjectedRevenue: 90, ProjectedRequests: 1, Source: model.SourceBusinessHistory, Confidence: model.ConfidenceMedium},
		},
	}

	require.NoError(t, writeOutput(&buf, "yaml", res))
	out := buf.String()
	assert.Contains(t, out, "success: true")
	assert.Contains(t, out, "total_projected_revenue: 90")
	assert.Contains(t, out, "source: business_history")
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	err := writeOutput(&bytes.Buffer{}, "xml", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

// TestEndToEnd_SQLite migrates a SQLite store, imports metrics, and prints
// a projection through the CLI.
func TestEndToEnd_SQLite(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	dbPath := filepath.Join(dir, "dealbook.db")
	t.Setenv("DEALBOOK_STORE_DRIVER", "sqlite")
	t.Setenv("DEALBOOK_STORE_DATABASE_URL", dbPath)
	t.Setenv("DEALBOOK_LOG_LEVEL", "error")

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute(), "dealbook %v", args)
		return out.String()
	}

	run("migrate")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO booking_requests (id, name, status, deal_id, owner_id) VALUES
		('R1', 'Weekend promo', 'booked', 'deal-r1', 'u1'),
		('R4', 'Rejected', 'rejected', NULL, 'u2')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	metricsFile := filepath.Join(dir, "metrics.json")
	require.NoError(t, os.WriteFile(metricsFile, []byte(`[
		{"deal_id": "deal-r1", "net_revenue": 120, "synced_at": "2026-06-01T00:00:00Z"},
		{"deal_id": "", "net_revenue": 50, "synced_at": "2026-06-01T00:00:00Z"}
	]`), 0o644))
	run("metrics", "import", metricsFile)

	out := run("project", "requests", "--ids", "R1,R4", "--format", "json")

	var res struct {
		Success bool                           `json:"success"`
		Data    map[string]model.ProjectionRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Data["R1"].ProjectedRevenue)
	assert.Equal(t, 120.0, *res.Data["R1"].ProjectedRevenue)
	assert.Equal(t, model.SourceActualDeal, res.Data["R1"].Source)
	assert.Equal(t, model.BucketOther, res.Data["R4"].Bucket)
	assert.Nil(t, res.Data["R4"].ProjectedRevenue)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(run("monitor", "check")), &report))
	require.NotNil(t, report.Snapshot)
	assert.Equal(t, 1, report.Snapshot.BookedWithDeal)
	assert.Equal(t, 1, report.Snapshot.UsableFacts)
	assert.InDelta(t, 1.0, report.Snapshot.FactCoverage, 0.0001)
}
