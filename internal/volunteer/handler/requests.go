package handler

import (
	"strings"

	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
)

// ApplyRequest is the HTTP request body for
// POST /volunteering/{opportunityID}/apply.
type ApplyRequest struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	PreferredActivity string `json:"preferred_activity"`
	Availability      string `json:"availability"`
	Motivation        string `json:"motivation"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ApplyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.FullName = strings.TrimSpace(r.FullName)
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if len(r.FullName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "full_name must be at most 200 characters")
	}
	if len(r.Motivation) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "motivation must be at most 1000 characters")
	}
	return nil
}

// AssignRequest is the HTTP request body for
// POST /volunteering/applications/{applicationID}/assign.
type AssignRequest struct {
	Task string `json:"task"`
}

// Validate validates the request.
func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Task = strings.TrimSpace(r.Task)
	if r.Task == "" {
		return dErrors.New(dErrors.CodeValidation, "task is required")
	}
	if len(r.Task) > 200 {
		return dErrors.New(dErrors.CodeValidation, "task must be at most 200 characters")
	}
	return nil
}

// CompleteRequest is the HTTP request body for
// POST /volunteering/applications/{applicationID}/complete. Hours are
// optional and default to zero.
type CompleteRequest struct {
	Hours float64 `json:"hours"`
}

// Validate validates the request.
func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.Hours < 0 {
		return dErrors.New(dErrors.CodeValidation, "hours must not be negative")
	}
	if r.Hours > 10000 {
		return dErrors.New(dErrors.CodeValidation, "hours is implausibly large")
	}
	return nil
}

// DecisionRequest is the HTTP request body for
// POST /volunteering/applications/{applicationID}/certificate/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`

	// Parsed values (populated by Validate)
	parsedDecision id.Decision
}

// Validate validates and parses the request.
func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if len(r.Note) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 1000 characters")
	}

	decision, err := id.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	return nil
}

// ParsedDecision returns the validated decision.
func (r *DecisionRequest) ParsedDecision() id.Decision {
	return r.parsedDecision
}
