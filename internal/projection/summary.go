package projection

import (
	"github.com/sells-group/dealbook/internal/model"
)

// EntityFallback estimates an entity's revenue from its own trend when its
// requests project nothing.
type EntityFallback func(entityID string) (Estimate, bool)

// Summarize folds rows into one summary per requested entity id. key maps a
// row to its owning entity ("" for none). Rows owned by ids outside the
// requested set are ignored, and every requested id is present in the
// result.
func Summarize(rows []model.ProjectionRow, ids []string, key func(model.ProjectionRow) string, fallback EntityFallback) map[string]model.EntitySummary {
	type acc struct {
		values []float64
		source model.ProjectionSource
	}

	accs := make(map[string]*acc, len(ids))
	for _, id := range ids {
		accs[id] = &acc{source: model.SourceNone}
	}

	for _, row := range rows {
		a, ok := accs[key(row)]
		if !ok {
			continue
		}
		if row.ProjectedRevenue != nil {
			a.values = append(a.values, *row.ProjectedRevenue)
		}
		// Strictly greater keeps the earlier row on ties.
		if row.Source.Rank() > a.source.Rank() {
			a.source = row.Source
		}
	}

	out := make(map[string]model.EntitySummary, len(accs))
	for id, a := range accs {
		s := model.EntitySummary{
			TotalProjectedRevenue: sumCents(a.values),
			ProjectedRequests:     len(a.values),
			Source:                a.source,
		}
		if s.TotalProjectedRevenue == 0 {
			s.Source = model.SourceNone
			if fallback != nil {
				if est, ok := fallback(id); ok {
					s.TotalProjectedRevenue = roundCents(est.Value)
					s.Source = est.Source
				}
			}
		}
		s.Confidence = s.Source.Confidence()
		out[id] = s
	}
	return out
}

// businessFallback builds an entity fallback from each entity's business:
// its history first, then the benchmark for the business's own category.
// businesses maps an entity id to its business.
func (ev Evidence) businessFallback(businesses map[string]*model.Business) EntityFallback {
	return func(id string) (Estimate, bool) {
		b, ok := businesses[id]
		if !ok || b == nil {
			return Estimate{}, false
		}
		if est, ok := ev.businessHistory(b.ID); ok {
			return est, true
		}
		if b.Category != nil {
			return ev.categoryBenchmark(CategoryKeys(*b.Category))
		}
		return Estimate{}, false
	}
}
