package projection

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// CategoryBenchmarks maps a category key to the median realized revenue of
// recent booked deals in that category.
type CategoryBenchmarks map[string]float64

// Lookup returns the benchmark for the first key that has one.
func (b CategoryBenchmarks) Lookup(keys []string) (float64, string, bool) {
	for _, k := range keys {
		if v, ok := b[k]; ok {
			return v, k, true
		}
	}
	return 0, "", false
}

// BuildCategoryBenchmarks computes category benchmarks for the given parent
// categories from booked requests with realized deals inside the lookback
// window. Every key of a request's path receives its revenue, and keys with
// fewer than MinBenchmarkSamples samples are dropped.
func BuildCategoryBenchmarks(ctx context.Context, st Store, parents []string, settings Settings, now time.Time) (CategoryBenchmarks, error) {
	settings = settings.withDefaults()
	out := CategoryBenchmarks{}

	parents = uniqueStrings(parents)
	if len(parents) == 0 {
		return out, nil
	}

	reqs, err := st.ListBookingRequests(ctx, store.RequestFilter{
		Statuses:         []model.RequestStatus{model.RequestStatusBooked},
		ParentCategories: parents,
		HasDealID:        true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "projection: load benchmark requests")
	}

	dealIDs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.DealID != nil {
			dealIDs = append(dealIDs, *r.DealID)
		}
	}
	facts, err := fetchDealMetrics(ctx, st, uniqueStrings(dealIDs), settings.FactBatchSize, settings.FetchConcurrency)
	if err != nil {
		return nil, eris.Wrap(err, "projection: load benchmark facts")
	}

	cutoff := now.AddDate(0, 0, -settings.LookbackDays)
	samples := make(map[string][]float64)
	used := 0
	for _, r := range reqs {
		if r.DealID == nil {
			continue
		}
		fact, ok := facts[*r.DealID]
		if !ok || !fact.Usable() {
			continue
		}
		if fact.ReferenceDate().Before(cutoff) {
			continue
		}
		keys := CategoryKeys(r.Category)
		if len(keys) == 0 {
			continue
		}
		used++
		for _, k := range keys {
			samples[k] = append(samples[k], fact.NetRevenue)
		}
	}

	for key, vals := range samples {
		if len(vals) < settings.MinBenchmarkSamples {
			continue
		}
		if m, ok := Median(vals); ok {
			out[key] = roundCents(m)
		}
	}

	zap.L().Debug("projection: category benchmarks built",
		zap.Strings("parents", parents),
		zap.Int("requests", len(reqs)),
		zap.Int("samples_used", used),
		zap.Int("keys", len(out)),
	)

	return out, nil
}
