package audit

import (
	"context"
	"time"

	id "ngoconnect/pkg/domain"
)

// EventCategory classifies audit events. Money movement and certificate
// decisions carry regulatory weight; volunteer lifecycle events are kept for
// operational visibility.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	NGOID     id.NGOID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	// AmountMinor is populated for donation events, in the currency's
	// smallest unit.
	AmountMinor int64
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// IP and UserAgent identify the connection the action arrived on,
	// needed when a trail entry has to be traced back to an origin.
	IP        string
	UserAgent string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an NGO reviewer deciding on a user's certificate.
	ActorID string
}

type AuditEvent string

const (
	// Donation events
	EventDonationInitiated AuditEvent = "donation_initiated"
	EventDonationCompleted AuditEvent = "donation_completed"
	EventDonationFailed    AuditEvent = "donation_failed"
	EventDonationExpired   AuditEvent = "donation_expired"

	// Volunteer events
	EventVolunteerApplied   AuditEvent = "volunteer_applied"
	EventVolunteerAssigned  AuditEvent = "volunteer_assigned"
	EventVolunteerWithdrawn AuditEvent = "volunteer_withdrawn"
	EventVolunteerCompleted AuditEvent = "volunteer_completed"

	// Certificate events
	EventCertificateApproved AuditEvent = "certificate_approved"
	EventCertificateRejected AuditEvent = "certificate_rejected"
	EventCertificateIssued   AuditEvent = "certificate_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDonationInitiated: CategoryCompliance,
	EventDonationCompleted: CategoryCompliance,
	EventDonationFailed:    CategoryCompliance,
	EventDonationExpired:   CategoryOperations,

	EventVolunteerApplied:   CategoryOperations,
	EventVolunteerAssigned:  CategoryOperations,
	EventVolunteerWithdrawn: CategoryOperations,
	EventVolunteerCompleted: CategoryOperations,

	EventCertificateApproved: CategoryCompliance,
	EventCertificateRejected: CategoryCompliance,
	EventCertificateIssued:   CategoryCompliance,
}

// Category returns the category for this event type. Unknown actions default
// to operations so they are never silently dropped by compliance filters.
func (e AuditEvent) Category() EventCategory {
	if category, ok := eventCategories[e]; ok {
		return category
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the narrow port domain services use to record events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
