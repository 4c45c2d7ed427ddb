// Package gateway abstracts the external payment provider. The adapter is
// never trusted for amount correctness: callers re-validate every amount it
// reports against their own records before acting on it.
package gateway

import "context"

// OrderRequest asks the provider to reserve an order sized in minor currency
// units (paise for INR).
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the opaque order descriptor handed back to the checkout UI.
type Order struct {
	Provider    string `json:"provider"`
	KeyID       string `json:"keyId,omitempty"`
	OrderID     string `json:"orderId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt,omitempty"`
	Status      string `json:"status"`
}

// Proof is the payload the beneficiary's browser returns after checkout.
type Proof struct {
	Provider  string `json:"provider"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	// AmountMinor echoes the amount the gateway reports as captured. The
	// workflow compares it against the stored donation and rejects on
	// mismatch; zero means not reported.
	AmountMinor int64 `json:"amount,omitempty"`
}

// Verification is the provider's verdict on a proof. Reason is safe to show
// to the payer.
type Verification struct {
	Verified bool
	Reason   string
}

// Adapter talks to a payment provider. Implementations are stateless per
// call.
type Adapter interface {
	// CreateOrder reserves an external order for the given amount.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyPayment checks the cryptographic proof of a completed checkout.
	// It never consults the order's amount; amount validation is the
	// caller's job.
	VerifyPayment(ctx context.Context, proof Proof) Verification
}
