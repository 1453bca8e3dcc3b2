package model

import "time"

// RequestStatus is the lifecycle status of a booking request.
type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "draft"
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusBooked    RequestStatus = "booked"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// CategoryPath is a category hierarchy: a parent plus up to four sub-levels.
// Any segment may be nil.
type CategoryPath struct {
	Parent *string `json:"parent,omitempty"`
	Sub1   *string `json:"sub1,omitempty"`
	Sub2   *string `json:"sub2,omitempty"`
	Sub3   *string `json:"sub3,omitempty"`
	Sub4   *string `json:"sub4,omitempty"`
}

// Segments returns the path as an ordered slice, parent first.
func (p CategoryPath) Segments() []*string {
	return []*string{p.Parent, p.Sub1, p.Sub2, p.Sub3, p.Sub4}
}

// BookingRequest is a deal request as stored by the booking back office.
// The projection engine only reads it.
type BookingRequest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	MerchantName  string        `json:"merchant_name"`
	ContactEmail  string        `json:"contact_email"`
	Status        RequestStatus `json:"status"`
	StartDate     *time.Time    `json:"start_date,omitempty"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	DealID        *string       `json:"deal_id,omitempty"`
	OpportunityID *string       `json:"opportunity_id,omitempty"`
	OwnerID       string        `json:"owner_id"`
	Category      CategoryPath  `json:"category"`
}
