package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealbook/internal/db"
	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// Store is the read access the collector needs.
type Store interface {
	ListBookingRequests(ctx context.Context, filter store.RequestFilter) ([]model.BookingRequest, error)
	ListDealMetrics(ctx context.Context, filter store.DealMetricFilter) ([]model.DealMetric, error)
}

// MetricsSnapshot describes how well the deal-metric facts cover booked
// requests at a point in time.
type MetricsSnapshot struct {
	CollectedAt       time.Time  `json:"collected_at" yaml:"collected_at"`
	BookedWithDeal    int        `json:"booked_with_deal" yaml:"booked_with_deal"`
	FactsFound        int        `json:"facts_found" yaml:"facts_found"`
	UsableFacts       int        `json:"usable_facts" yaml:"usable_facts"`
	FactCoverage      float64    `json:"fact_coverage" yaml:"fact_coverage"`
	LatestMetricsSync *time.Time `json:"latest_metrics_sync,omitempty" yaml:"latest_metrics_sync,omitempty"`
}

// MetricsAge returns how long ago the freshest fact was synced, and false
// when no fact has ever been synced.
func (s *MetricsSnapshot) MetricsAge() (time.Duration, bool) {
	if s.LatestMetricsSync == nil {
		return 0, false
	}
	return s.CollectedAt.Sub(*s.LatestMetricsSync), true
}

// Collector gathers a MetricsSnapshot from the store.
type Collector struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// NewCollector creates a Collector reading facts in batches of batchSize.
func NewCollector(st Store, batchSize int) *Collector {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Collector{store: st, batchSize: batchSize, now: time.Now}
}

// Collect builds a snapshot of fact coverage for booked requests.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: c.now().UTC()}

	reqs, err := c.store.ListBookingRequests(ctx, store.RequestFilter{
		Statuses:  []model.RequestStatus{model.RequestStatusBooked},
		HasDealID: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list booked requests")
	}

	seen := make(map[string]bool, len(reqs))
	dealIDs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.DealID == nil || *r.DealID == "" || seen[*r.DealID] {
			continue
		}
		seen[*r.DealID] = true
		dealIDs = append(dealIDs, *r.DealID)
	}
	snap.BookedWithDeal = len(dealIDs)

	for _, chunk := range db.Chunk(dealIDs, c.batchSize) {
		metrics, err := c.store.ListDealMetrics(ctx, store.DealMetricFilter{DealIDs: chunk})
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: list deal metrics batch of %d", len(chunk))
		}
		for _, m := range metrics {
			if !seen[m.DealID] {
				continue
			}
			// A deal only counts once even if the store returns duplicates.
			seen[m.DealID] = false
			snap.FactsFound++
			if m.Usable() {
				snap.UsableFacts++
			}
			if snap.LatestMetricsSync == nil || m.SyncedAt.After(*snap.LatestMetricsSync) {
				synced := m.SyncedAt.UTC()
				snap.LatestMetricsSync = &synced
			}
		}
	}

	if snap.BookedWithDeal > 0 {
		snap.FactCoverage = float64(snap.UsableFacts) / float64(snap.BookedWithDeal)
	}
	return snap, nil
}
