package projection

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealbook/internal/db"
	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// Store is the read-only data access the engine needs.
type Store interface {
	ListBookingRequests(ctx context.Context, filter store.RequestFilter) ([]model.BookingRequest, error)
	ListBusinesses(ctx context.Context, filter store.BusinessFilter) ([]model.Business, error)
	ListOpportunities(ctx context.Context, filter store.OpportunityFilter) ([]model.Opportunity, error)
	ListDealMetrics(ctx context.Context, filter store.DealMetricFilter) ([]model.DealMetric, error)
}

// fetchDealMetrics loads the metrics for dealIDs in batches of batchSize,
// running up to concurrency batches at once. The result is keyed by deal id.
func fetchDealMetrics(ctx context.Context, st Store, dealIDs []string, batchSize, concurrency int) (map[string]model.DealMetric, error) {
	out := make(map[string]model.DealMetric, len(dealIDs))
	if len(dealIDs) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, chunk := range db.Chunk(dealIDs, batchSize) {
		g.Go(func() error {
			metrics, err := st.ListDealMetrics(gctx, store.DealMetricFilter{DealIDs: chunk})
			if err != nil {
				return eris.Wrapf(err, "projection: fetch deal metrics batch of %d", len(chunk))
			}
			mu.Lock()
			for _, m := range metrics {
				out[m.DealID] = m
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// uniqueStrings returns the distinct non-empty values in first-seen order.
func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
