// Package domainerrors provides coded errors for the service layer. Services
// return these (or wrap infrastructure errors into them) and the HTTP layer
// translates codes into statuses, so error semantics live in one place.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are wire-stable: they appear verbatim
// in HTTP error bodies.
type Code string

const (
	// Generic codes.
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Contribution-engine codes (spec'd taxonomy).
	CodeCampaignClosed       Code = "campaign_closed"
	CodeOpportunityFull      Code = "opportunity_full"
	CodeAlreadyApplied       Code = "already_applied"
	CodePaymentVerification  Code = "payment_verification_failed"
	CodeAlreadyFinalized     Code = "already_finalized"
	CodeInvalidApprovalState Code = "invalid_approval_state"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	ErrCode Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{ErrCode: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable via errors.Is/As but is never surfaced to callers.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ErrCode == code
	}
	return false
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal so
// unexpected errors never leak details through the HTTP layer.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ErrCode
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message, empty for non-domain errors.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}
