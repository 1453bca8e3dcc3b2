package model

import "time"

// ProjectionSource is the evidence tier behind a projected value.
type ProjectionSource string

const (
	SourceActualDeal        ProjectionSource = "actual_deal"
	SourceBusinessHistory   ProjectionSource = "business_history"
	SourceCategoryBenchmark ProjectionSource = "category_benchmark"
	SourceNone              ProjectionSource = "none"
)

// Rank orders sources by strength; higher is more specific.
func (s ProjectionSource) Rank() int {
	switch s {
	case SourceActualDeal:
		return 3
	case SourceBusinessHistory:
		return 2
	case SourceCategoryBenchmark:
		return 1
	default:
		return 0
	}
}

// Confidence returns the fixed confidence tier for the source.
func (s ProjectionSource) Confidence() Confidence {
	switch s {
	case SourceActualDeal:
		return ConfidenceHigh
	case SourceBusinessHistory:
		return ConfidenceMedium
	case SourceCategoryBenchmark:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Confidence is the three-tier label attached to a projection.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Bucket is the coarse lifecycle grouping of a request status.
type Bucket string

const (
	BucketInProcess Bucket = "in_process"
	BucketBooked    Bucket = "booked"
	BucketOther     Bucket = "other"
)

// BucketFor maps a request status to its lifecycle bucket.
func BucketFor(status RequestStatus) Bucket {
	switch status {
	case RequestStatusBooked:
		return BucketBooked
	case RequestStatusDraft, RequestStatusPending, RequestStatusApproved:
		return BucketInProcess
	default:
		return BucketOther
	}
}

// ProjectionRow is the projected revenue for a single booking request.
type ProjectionRow struct {
	RequestID        string           `json:"request_id" yaml:"request_id"`
	RequestName      string           `json:"request_name" yaml:"request_name"`
	Status           RequestStatus    `json:"status" yaml:"status"`
	ProjectedRevenue *float64         `json:"projected_revenue" yaml:"projected_revenue"`
	Source           ProjectionSource `json:"source" yaml:"source"`
	Confidence       Confidence       `json:"confidence" yaml:"confidence"`
	Bucket           Bucket           `json:"bucket" yaml:"bucket"`
	BusinessID       *string          `json:"business_id,omitempty" yaml:"business_id,omitempty"`
	BusinessName     *string          `json:"business_name,omitempty" yaml:"business_name,omitempty"`
	VendorID         *string          `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	OpportunityID    *string          `json:"opportunity_id,omitempty" yaml:"opportunity_id,omitempty"`
	MetricsSyncedAt  *time.Time       `json:"metrics_synced_at,omitempty" yaml:"metrics_synced_at,omitempty"`
}

// EntitySummary rolls up the projections of one business or opportunity.
type EntitySummary struct {
	TotalProjectedRevenue float64          `json:"total_projected_revenue" yaml:"total_projected_revenue"`
	ProjectedRequests     int              `json:"projected_requests" yaml:"projected_requests"`
	Source                ProjectionSource `json:"source" yaml:"source"`
	Confidence            Confidence       `json:"confidence" yaml:"confidence"`
}

// EmptySummary is the summary reported for an entity with no data.
func EmptySummary() EntitySummary {
	return EntitySummary{Source: SourceNone, Confidence: ConfidenceNone}
}

// BucketTotals holds per-bucket dashboard figures.
type BucketTotals struct {
	Requests          int     `json:"requests" yaml:"requests"`
	ProjectedRequests int     `json:"projected_requests" yaml:"projected_requests"`
	ProjectedRevenue  float64 `json:"projected_revenue" yaml:"projected_revenue"`
	CoveragePct       float64 `json:"coverage_pct" yaml:"coverage_pct"`
}

// DashboardSummary is the rolled-up view over all dashboard rows.
type DashboardSummary struct {
	TotalProjectedRevenue float64                  `json:"total_projected_revenue" yaml:"total_projected_revenue"`
	InProcess             BucketTotals             `json:"in_process" yaml:"in_process"`
	Booked                BucketTotals             `json:"booked" yaml:"booked"`
	CoveragePct           float64                  `json:"coverage_pct" yaml:"coverage_pct"`
	BySource              map[ProjectionSource]int `json:"by_source" yaml:"by_source"`
	LatestMetricsSyncAt   *time.Time               `json:"latest_metrics_sync_at,omitempty" yaml:"latest_metrics_sync_at,omitempty"`
}

// Dashboard is the full dataset for the projections dashboard.
type Dashboard struct {
	Rows    []ProjectionRow  `json:"rows" yaml:"rows"`
	Summary DashboardSummary `json:"summary" yaml:"summary"`
}
