// Package donation implements the payment half of the contribution engine:
// initiate against a campaign, confirm with a gateway proof, receipts, and
// the certificate approval that follows a completed donation.
package donation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
)

// Status is the donation state machine. The only transitions are
// initiated->completed and initiated->failed; both end states are terminal.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type PaymentMethod string

const (
	MethodUPI          PaymentMethod = "upi"
	MethodCard         PaymentMethod = "card"
	MethodNetBanking   PaymentMethod = "netbanking"
	MethodWallet       PaymentMethod = "wallet"
	MethodBankTransfer PaymentMethod = "bank-transfer"
	MethodCash         PaymentMethod = "cash"
)

// ParsePaymentMethod validates a raw method string.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case MethodUPI, MethodCard, MethodNetBanking, MethodWallet, MethodBankTransfer, MethodCash:
		return method, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", raw))
}

var (
	upiIDPattern      = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,}@[a-zA-Z]{2,}$`)
	cardNumberPattern = regexp.MustCompile(`^\d{13,19}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardCVVPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// PaymentDetails is the method-specific detail union. Details are validated
// at initiation and then discarded; only the method itself is persisted.
type PaymentDetails struct {
	UPIID          string `json:"upi_id,omitempty"`
	CardNumber     string `json:"card_number,omitempty"`
	CardExpiry     string `json:"card_expiry,omitempty"`
	CardCVV        string `json:"card_cvv,omitempty"`
	Bank           string `json:"bank,omitempty"`
	WalletProvider string `json:"wallet_provider,omitempty"`
}

// ValidateFor checks the fields the given method requires.
func (d PaymentDetails) ValidateFor(method PaymentMethod) error {
	switch method {
	case MethodUPI:
		if !upiIDPattern.MatchString(d.UPIID) {
			return dErrors.New(dErrors.CodeValidation, "upi id must look like name@bank")
		}
	case MethodCard:
		if !cardNumberPattern.MatchString(d.CardNumber) {
			return dErrors.New(dErrors.CodeValidation, "card number must be 13 to 19 digits")
		}
		if !cardExpiryPattern.MatchString(d.CardExpiry) {
			return dErrors.New(dErrors.CodeValidation, "card expiry must be MM/YY")
		}
		if !cardCVVPattern.MatchString(d.CardCVV) {
			return dErrors.New(dErrors.CodeValidation, "cvv must be 3 or 4 digits")
		}
	case MethodNetBanking, MethodBankTransfer:
		if strings.TrimSpace(d.Bank) == "" {
			return dErrors.New(dErrors.CodeValidation, "bank name is required")
		}
	case MethodWallet:
		if strings.TrimSpace(d.WalletProvider) == "" {
			return dErrors.New(dErrors.CodeValidation, "wallet provider is required")
		}
	case MethodCash:
		// nothing to validate
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
	return nil
}

// Donation is a single contribution attempt against a campaign. Rows are
// append-only: they move forward through the state machine and are never
// deleted.
//
// Invariants:
//   - AmountMinor is immutable after creation
//   - ReceiptNumber is set iff Status == StatusCompleted and is globally
//     unique
//   - Approval leaves ApprovalNotRequested only when the donation completes
type Donation struct {
	ID         id.DonationID `json:"id"`
	CampaignID id.CampaignID `json:"campaign_id"`
	DonorID    id.UserID     `json:"-"`
	NGOID      id.NGOID      `json:"-"`

	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency"`
	Method      PaymentMethod `json:"payment_method"`
	Message     string        `json:"message,omitempty"`

	// Snapshots taken at initiation so receipts and certificates stay
	// renderable even if the campaign or profile changes later.
	DonorName     string `json:"donor_name"`
	DonorEmail    string `json:"-"`
	CampaignTitle string `json:"campaign_title"`
	NGOName       string `json:"ngo_name"`

	Status        Status `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`

	IdempotencyKey   string `json:"-"`
	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	ReceiptNumber    string `json:"receipt_number,omitempty"`

	Approval id.ApprovalState `json:"certificate_approval"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ApplyCompletion finalizes a successful payment. The caller must hold the
// store's per-donation lock and have verified the gateway proof.
func (d *Donation) ApplyCompletion(now time.Time, paymentID, receiptNumber string) {
	d.Status = StatusCompleted
	d.GatewayPaymentID = paymentID
	d.ReceiptNumber = receiptNumber
	d.CompletedAt = &now
	d.Approval.Request(now)
}

// ApplyFailure moves the donation to its terminal failed state.
func (d *Donation) ApplyFailure(reason string) {
	d.Status = StatusFailed
	d.FailureReason = reason
}

// ApprovalState exposes the certificate approval sub-state for the gate.
func (d *Donation) ApprovalState() *id.ApprovalState {
	return &d.Approval
}

// CertificateSpec describes the donation certificate minted on approval.
func (d *Donation) CertificateSpec() certificate.Spec {
	return certificate.Spec{
		Entity:        certificate.DonationRef(d.ID),
		BeneficiaryID: d.DonorID,
		NGOID:         d.NGOID,
		Title:         "Certificate of Donation",
		Metadata: certificate.Metadata{
			RecipientName:           d.DonorName,
			RecipientEmail:          d.DonorEmail,
			NGOName:                 d.NGOName,
			CampaignTitle:           d.CampaignTitle,
			PaymentMethod:           string(d.Method),
			ContributionAmountMinor: d.AmountMinor,
		},
	}
}
