// Package store provides read access to booking requests, businesses,
// opportunities and deal metrics, backed by Postgres or SQLite.
package store

import (
	"context"

	"github.com/sells-group/dealbook/internal/model"
)

// RequestFilter selects booking requests. Non-empty fields are ANDed
// together, except the entity selectors (OpportunityIDs, ContactEmails,
// MerchantNames) which match a request if any one of them matches.
type RequestFilter struct {
	IDs              []string              `json:"ids,omitempty"`
	Statuses         []model.RequestStatus `json:"statuses,omitempty"`
	ParentCategories []string              `json:"parent_categories,omitempty"` // case-insensitive
	HasDealID        bool                  `json:"has_deal_id,omitempty"`
	OwnerID          string                `json:"owner_id,omitempty"`

	OpportunityIDs []string `json:"opportunity_ids,omitempty"`
	ContactEmails  []string `json:"contact_emails,omitempty"` // folded with model.FoldKey
	MerchantNames  []string `json:"merchant_names,omitempty"` // folded with model.FoldKey
}

// BusinessFilter selects businesses matching any of IDs, ContactEmails or
// Names, optionally restricted to one owner. A filter without selectors
// matches nothing.
type BusinessFilter struct {
	IDs           []string `json:"ids,omitempty"`
	ContactEmails []string `json:"contact_emails,omitempty"` // folded with model.FoldKey
	Names         []string `json:"names,omitempty"`          // folded with model.FoldKey
	OwnerID       string   `json:"owner_id,omitempty"`
}

func (f BusinessFilter) empty() bool {
	return len(f.IDs) == 0 && len(f.ContactEmails) == 0 && len(f.Names) == 0
}

// OpportunityFilter selects opportunities matching any of IDs or
// BusinessIDs. A filter without selectors matches nothing.
type OpportunityFilter struct {
	IDs         []string `json:"ids,omitempty"`
	BusinessIDs []string `json:"business_ids,omitempty"`
}

func (f OpportunityFilter) empty() bool {
	return len(f.IDs) == 0 && len(f.BusinessIDs) == 0
}

// DealMetricFilter selects deal metrics matching any of the id sets. A
// filter with no ids matches nothing.
type DealMetricFilter struct {
	DealIDs     []string `json:"deal_ids,omitempty"`
	BusinessIDs []string `json:"business_ids,omitempty"`
	VendorIDs   []string `json:"vendor_ids,omitempty"`
}

func (f DealMetricFilter) empty() bool {
	return len(f.DealIDs) == 0 && len(f.BusinessIDs) == 0 && len(f.VendorIDs) == 0
}

// Store defines the persistence interface for the projection engine.
type Store interface {
	ListBookingRequests(ctx context.Context, filter RequestFilter) ([]model.BookingRequest, error)
	ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.Business, error)
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error)
	ListDealMetrics(ctx context.Context, filter DealMetricFilter) ([]model.DealMetric, error)

	// UpsertDealMetrics writes synced deal metrics, keyed by deal id.
	UpsertDealMetrics(ctx context.Context, metrics []model.DealMetric) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
