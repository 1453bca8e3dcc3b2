package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDealMetrics(t *testing.T) {
	in := `[
		{"deal_id": " d1 ", "net_revenue": 100, "synced_at": "2026-06-01T00:00:00Z"},
		{"deal_id": "d2", "vendor_id": "v9", "business_id": "b1", "net_revenue": 80.5, "end_at": "2026-05-01T00:00:00Z", "synced_at": "2026-06-01T00:00:00Z"},
		{"deal_id": "", "net_revenue": 10, "synced_at": "2026-06-01T00:00:00Z"},
		{"deal_id": "d3", "net_revenue": -1, "synced_at": "2026-06-01T00:00:00Z"},
		{"deal_id": "d1", "net_revenue": 110, "synced_at": "2026-06-02T00:00:00Z"}
	]`

	metrics, skipped, err := readDealMetrics(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, metrics, 2)

	assert.Equal(t, "d1", metrics[0].DealID)
	assert.Equal(t, 110.0, metrics[0].NetRevenue, "last entry for a deal wins")
	assert.Equal(t, "d2", metrics[1].DealID)
	require.NotNil(t, metrics[1].VendorID)
	assert.Equal(t, "v9", *metrics[1].VendorID)
	require.NotNil(t, metrics[1].EndAt)
}

func TestReadDealMetrics_InvalidJSON(t *testing.T) {
	_, _, err := readDealMetrics(strings.NewReader(`{"deal_id":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode metrics file")
}
