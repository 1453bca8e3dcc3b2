package model

import (
	"math"
	"time"
)

// Business is an internal business (advertiser) record.
type Business struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	ContactEmail    string        `json:"contact_email"`
	VendorID        *string       `json:"vendor_id,omitempty"`
	OwnerID         string        `json:"owner_id"`
	MetricsSyncedAt *time.Time    `json:"metrics_synced_at,omitempty"`
	Category        *CategoryPath `json:"category,omitempty"`
}

// Opportunity is a sales opportunity, optionally linked to a business.
type Opportunity struct {
	ID         string    `json:"id"`
	BusinessID *string   `json:"business_id,omitempty"`
	Business   *Business `json:"business,omitempty"`
}

// DealMetric is the realized revenue fact for an external deal, as synced
// from the booking partner.
type DealMetric struct {
	DealID     string     `json:"deal_id"`
	VendorID   *string    `json:"vendor_id,omitempty"`
	BusinessID *string    `json:"business_id,omitempty"`
	NetRevenue float64    `json:"net_revenue"`
	RunAt      *time.Time `json:"run_at,omitempty"`
	EndAt      *time.Time `json:"end_at,omitempty"`
	SyncedAt   time.Time  `json:"synced_at"`
}

// Usable reports whether the fact carries revenue a projection can use.
func (m DealMetric) Usable() bool {
	return UsableRevenue(m.NetRevenue)
}

// UsableRevenue reports whether v can be used as revenue. Zero, negative
// and non-finite values are excluded.
func UsableRevenue(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ReferenceDate is the date a fact is aged by: end date, else run date,
// else the last sync.
func (m DealMetric) ReferenceDate() time.Time {
	switch {
	case m.EndAt != nil:
		return *m.EndAt
	case m.RunAt != nil:
		return *m.RunAt
	default:
		return m.SyncedAt
	}
}
