package domain

import (
	"strings"
	"time"

	dErrors "ngoconnect/pkg/domain-errors"
)

// ApprovalStatus is the certificate-approval sub-state attached to a
// completed donation or volunteer application. It gates certificate issuance.
type ApprovalStatus string

const (
	ApprovalNotRequested ApprovalStatus = "not_requested"
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
)

// ApprovalState carries the full review trail for a certificate request.
//
// Invariants:
//   - Status starts at not_requested and only moves forward
//     (not_requested → pending → approved|rejected)
//   - ReviewedAt, ReviewedBy and Note are set iff Status is approved or rejected
//   - rejection is terminal for the owning entity
type ApprovalState struct {
	Status      ApprovalStatus `json:"status"`
	RequestedAt *time.Time     `json:"requested_at,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy  NGOID          `json:"-"`
	Note        string         `json:"note,omitempty"`
}

// NewApprovalState returns the initial, not-yet-requested state.
func NewApprovalState() ApprovalState {
	return ApprovalState{Status: ApprovalNotRequested}
}

// Request moves the state to pending. Called automatically when a donation is
// confirmed or a volunteer activity is completed; there is no opt-in step.
func (s *ApprovalState) Request(now time.Time) {
	s.Status = ApprovalPending
	s.RequestedAt = &now
}

// Decision is an NGO reviewer's verdict on a pending certificate request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates the wire form of a reviewer decision.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "decision must be either approve or reject")
	}
}
