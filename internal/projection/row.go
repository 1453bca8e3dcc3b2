package projection

import (
	"time"

	"github.com/sells-group/dealbook/internal/model"
)

// Estimate is the outcome of the projection cascade: a value and the
// evidence tier it came from. Source is SourceNone when nothing applied.
type Estimate struct {
	Value  float64
	Source model.ProjectionSource
}

var noEstimate = Estimate{Source: model.SourceNone}

// Evidence is everything the cascade can draw on for one pipeline run.
type Evidence struct {
	Actuals    map[string]model.DealMetric // by deal id
	History    BusinessHistory
	Benchmarks CategoryBenchmarks
}

// candidate is one cascade step.
type candidate func(req model.BookingRequest, biz *model.Business) (Estimate, bool)

// Estimate runs the cascade for req: realized deal revenue, then the
// matched business's history, then the request's category benchmark.
func (ev Evidence) Estimate(req model.BookingRequest, biz *model.Business) Estimate {
	for _, step := range []candidate{ev.actual, ev.history, ev.benchmark} {
		if est, ok := step(req, biz); ok {
			est.Value = roundCents(est.Value)
			return est
		}
	}
	return noEstimate
}

func (ev Evidence) actual(req model.BookingRequest, _ *model.Business) (Estimate, bool) {
	if req.DealID == nil {
		return Estimate{}, false
	}
	fact, ok := ev.Actuals[*req.DealID]
	if !ok || !fact.Usable() {
		return Estimate{}, false
	}
	return Estimate{Value: fact.NetRevenue, Source: model.SourceActualDeal}, true
}

func (ev Evidence) history(_ model.BookingRequest, biz *model.Business) (Estimate, bool) {
	if biz == nil {
		return Estimate{}, false
	}
	return ev.businessHistory(biz.ID)
}

func (ev Evidence) benchmark(req model.BookingRequest, _ *model.Business) (Estimate, bool) {
	return ev.categoryBenchmark(CategoryKeys(req.Category))
}

func (ev Evidence) businessHistory(businessID string) (Estimate, bool) {
	v, ok := ev.History[businessID]
	if !ok || !model.UsableRevenue(v) {
		return Estimate{}, false
	}
	return Estimate{Value: v, Source: model.SourceBusinessHistory}, true
}

func (ev Evidence) categoryBenchmark(keys []string) (Estimate, bool) {
	v, _, ok := ev.Benchmarks.Lookup(keys)
	if !ok || !model.UsableRevenue(v) {
		return Estimate{}, false
	}
	return Estimate{Value: v, Source: model.SourceCategoryBenchmark}, true
}

// BuildRow projects a single request. biz is the matched business, or nil.
// The row's metrics sync time is the latest of the matched business's sync
// and the request's own deal fact, when that fact is usable revenue.
func (ev Evidence) BuildRow(req model.BookingRequest, biz *model.Business) model.ProjectionRow {
	est := ev.Estimate(req, biz)

	row := model.ProjectionRow{
		RequestID:     req.ID,
		RequestName:   req.Name,
		Status:        req.Status,
		Source:        est.Source,
		Confidence:    est.Source.Confidence(),
		Bucket:        model.BucketFor(req.Status),
		OpportunityID: req.OpportunityID,
	}
	if est.Source != model.SourceNone {
		v := est.Value
		row.ProjectedRevenue = &v
	}

	var syncTimes []*time.Time
	if req.DealID != nil {
		if fact, ok := ev.Actuals[*req.DealID]; ok && fact.Usable() {
			synced := fact.SyncedAt
			syncTimes = append(syncTimes, &synced)
		}
	}
	if biz != nil {
		id, name := biz.ID, biz.Name
		row.BusinessID = &id
		row.BusinessName = &name
		row.VendorID = biz.VendorID
		syncTimes = append(syncTimes, biz.MetricsSyncedAt)
	}
	row.MetricsSyncedAt = latest(syncTimes...)

	return row
}

// latest returns the most recent non-nil, non-zero time.
func latest(ts ...*time.Time) *time.Time {
	var out *time.Time
	for _, t := range ts {
		if t == nil || t.IsZero() {
			continue
		}
		if out == nil || t.After(*out) {
			v := *t
			out = &v
		}
	}
	return out
}
