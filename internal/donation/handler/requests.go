package handler

import (
	"strings"

	"ngoconnect/internal/donation"
	"ngoconnect/internal/gateway"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
)

// InitiateRequest is the HTTP request body for
// POST /donations/campaign/{campaignID}/initiate.
type InitiateRequest struct {
	AmountMinor    int64                   `json:"amount_minor"`
	PaymentMethod  string                  `json:"payment_method"`
	PaymentDetails donation.PaymentDetails `json:"payment_details"`
	Message        string                  `json:"message"`
	DonorName      string                  `json:"donor_name"`
	DonorEmail     string                  `json:"donor_email"`

	// Parsed values (populated by Validate)
	parsedMethod donation.PaymentMethod
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *InitiateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.AmountMinor <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount_minor must be positive")
	}
	if len(r.Message) > 500 {
		return dErrors.New(dErrors.CodeValidation, "message must be at most 500 characters")
	}

	r.DonorName = strings.TrimSpace(r.DonorName)
	if r.DonorName == "" {
		return dErrors.New(dErrors.CodeValidation, "donor_name is required")
	}
	if len(r.DonorName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "donor_name must be at most 200 characters")
	}

	method, err := donation.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return err
	}
	r.parsedMethod = method

	return r.PaymentDetails.ValidateFor(method)
}

// ParsedMethod returns the validated payment method.
func (r *InitiateRequest) ParsedMethod() donation.PaymentMethod {
	return r.parsedMethod
}

// ConfirmRequest is the HTTP request body for
// POST /donations/{donationID}/confirm.
type ConfirmRequest struct {
	Proof gateway.Proof `json:"proof"`
}

// Validate implements the Validatable interface.
func (r *ConfirmRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Proof.OrderID = strings.TrimSpace(r.Proof.OrderID)
	r.Proof.PaymentID = strings.TrimSpace(r.Proof.PaymentID)
	r.Proof.Signature = strings.TrimSpace(r.Proof.Signature)
	if r.Proof.OrderID == "" {
		return dErrors.New(dErrors.CodeValidation, "proof.orderId is required")
	}
	if r.Proof.PaymentID == "" {
		return dErrors.New(dErrors.CodeValidation, "proof.paymentId is required")
	}
	if r.Proof.Signature == "" {
		return dErrors.New(dErrors.CodeValidation, "proof.signature is required")
	}
	return nil
}

// DecisionRequest is the HTTP request body for
// POST /donations/{donationID}/certificate/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`

	parsedDecision id.Decision
}

// Validate implements the Validatable interface.
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
