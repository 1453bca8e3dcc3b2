package projection

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// fakeStore is an in-memory Store that applies filters the same way the SQL
// stores do.
type fakeStore struct {
	mu            sync.Mutex
	requests      []model.BookingRequest
	businesses    []model.Business
	opportunities []model.Opportunity
	metrics       []model.DealMetric

	err   error
	delay time.Duration

	requestCalls atomic.Int32
	metricCalls  atomic.Int32
}

func (f *fakeStore) wait(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func fold(s string) string { return model.FoldKey(s) }

func (f *fakeStore) ListBookingRequests(ctx context.Context, filter store.RequestFilter) ([]model.BookingRequest, error) {
	f.requestCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	var out []model.BookingRequest
	for _, r := range f.requests {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, r.ID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		if len(filter.ParentCategories) > 0 {
			if r.Category.Parent == nil || !slices.ContainsFunc(filter.ParentCategories, func(p string) bool {
				return model.FoldSegment(p) == model.FoldSegment(*r.Category.Parent)
			}) {
				continue
			}
		}
		if filter.HasDealID && (r.DealID == nil || *r.DealID == "") {
			continue
		}
		if filter.OwnerID != "" && r.OwnerID != filter.OwnerID {
			continue
		}
		if len(filter.OpportunityIDs)+len(filter.ContactEmails)+len(filter.MerchantNames) > 0 {
			hit := (r.OpportunityID != nil && slices.Contains(filter.OpportunityIDs, *r.OpportunityID)) ||
				slices.Contains(filter.ContactEmails, fold(r.ContactEmail)) ||
				slices.Contains(filter.MerchantNames, fold(r.MerchantName))
			if !hit {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) ListBusinesses(ctx context.Context, filter store.BusinessFilter) ([]model.Business, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if len(filter.IDs)+len(filter.ContactEmails)+len(filter.Names) == 0 {
		return nil, nil
	}

	var out []model.Business
	for _, b := range f.businesses {
		if filter.OwnerID != "" && b.OwnerID != filter.OwnerID {
			continue
		}
		if slices.Contains(filter.IDs, b.ID) ||
			slices.Contains(filter.ContactEmails, fold(b.ContactEmail)) ||
			slices.Contains(filter.Names, fold(b.Name)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOpportunities(ctx context.Context, filter store.OpportunityFilter) ([]model.Opportunity, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	var out []model.Opportunity
	for _, o := range f.opportunities {
		if !slices.Contains(filter.IDs, o.ID) && (o.BusinessID == nil || !slices.Contains(filter.BusinessIDs, *o.BusinessID)) {
			continue
		}
		if o.BusinessID != nil {
			for i := range f.businesses {
				if f.businesses[i].ID == *o.BusinessID {
					b := f.businesses[i]
					o.Business = &b
				}
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeStore) ListDealMetrics(ctx context.Context, filter store.DealMetricFilter) ([]model.DealMetric, error) {
	f.metricCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	var out []model.DealMetric
	for _, m := range f.metrics {
		if slices.Contains(filter.DealIDs, m.DealID) ||
			(m.BusinessID != nil && slices.Contains(filter.BusinessIDs, *m.BusinessID)) ||
			(m.VendorID != nil && slices.Contains(filter.VendorIDs, *m.VendorID)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func strp(s string) *string { return &s }

func timep(t time.Time) *time.Time { return &t }

func category(parts ...string) model.CategoryPath {
	var c model.CategoryPath
	segs := []**string{&c.Parent, &c.Sub1, &c.Sub2, &c.Sub3, &c.Sub4}
	for i, p := range parts {
		*segs[i] = strp(p)
	}
	return c
}

// bookedDeal returns a booked request with a realized metric in category
// cat, ended daysAgo days before now.
func bookedDeal(id string, revenue float64, now time.Time, daysAgo int, cat ...string) (model.BookingRequest, model.DealMetric) {
	dealID := "deal-" + id
	req := model.BookingRequest{
		ID:       id,
		Name:     "Booked " + id,
		Status:   model.RequestStatusBooked,
		DealID:   &dealID,
		Category: category(cat...),
	}
	metric := model.DealMetric{
		DealID:     dealID,
		NetRevenue: revenue,
		EndAt:      timep(now.AddDate(0, 0, -daysAgo)),
		SyncedAt:   now,
	}
	return req, metric
}
