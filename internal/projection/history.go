package projection

import (
	"cmp"
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// BusinessHistory maps a business id to the median revenue of its most
// recent realized deals.
type BusinessHistory map[string]float64

// BuildBusinessHistory computes the history median for each business from
// deal metrics linked by business id, or by vendor id when the metric has
// no link to a requested business. When several businesses share a vendor
// id, the first one in businesses owns it.
func BuildBusinessHistory(ctx context.Context, st Store, businesses []model.Business, settings Settings) (BusinessHistory, error) {
	settings = settings.withDefaults()
	out := BusinessHistory{}
	if len(businesses) == 0 {
		return out, nil
	}

	known := make(map[string]bool, len(businesses))
	vendorOwner := make(map[string]string)
	var ids, vendorIDs []string
	for _, b := range businesses {
		if !known[b.ID] {
			known[b.ID] = true
			ids = append(ids, b.ID)
		}
		if b.VendorID == nil || *b.VendorID == "" {
			continue
		}
		if _, taken := vendorOwner[*b.VendorID]; !taken {
			vendorOwner[*b.VendorID] = b.ID
			vendorIDs = append(vendorIDs, *b.VendorID)
		}
	}

	facts, err := st.ListDealMetrics(ctx, store.DealMetricFilter{BusinessIDs: ids, VendorIDs: vendorIDs})
	if err != nil {
		return nil, eris.Wrap(err, "projection: load business history facts")
	}

	byBusiness := make(map[string][]model.DealMetric)
	for _, f := range facts {
		if !f.Usable() {
			continue
		}
		owner := historyOwner(f, known, vendorOwner)
		if owner == "" {
			continue
		}
		byBusiness[owner] = append(byBusiness[owner], f)
	}

	for id, deals := range byBusiness {
		slices.SortStableFunc(deals, func(a, b model.DealMetric) int {
			if c := b.ReferenceDate().Compare(a.ReferenceDate()); c != 0 {
				return c
			}
			return cmp.Compare(a.DealID, b.DealID)
		})
		if len(deals) > settings.HistoryDepth {
			deals = deals[:settings.HistoryDepth]
		}
		revenues := make([]float64, len(deals))
		for i, d := range deals {
			revenues[i] = d.NetRevenue
		}
		if m, ok := Median(revenues); ok {
			out[id] = roundCents(m)
		}
	}

	zap.L().Debug("projection: business history built",
		zap.Int("businesses", len(ids)),
		zap.Int("facts", len(facts)),
		zap.Int("with_history", len(out)),
	)

	return out, nil
}

// historyOwner resolves which requested business a fact belongs to.
func historyOwner(f model.DealMetric, known map[string]bool, vendorOwner map[string]string) string {
	if f.BusinessID != nil && known[*f.BusinessID] {
		return *f.BusinessID
	}
	if f.VendorID != nil {
		return vendorOwner[*f.VendorID]
	}
	return ""
}
