package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

const mockProvider = "mock"

// Mock is a deterministic in-process provider for development and tests.
// Order IDs are sequential and signatures are real HMACs over a fixed secret,
// so the verification path exercises the same code as production.
type Mock struct {
	secret  []byte
	counter atomic.Uint64
}

func NewMock() *Mock {
	return &Mock{secret: []byte("mock-gateway-secret")}
}

func (m *Mock) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("invalid amount for payment order: %d", req.AmountMinor)
	}
	n := m.counter.Add(1)
	return &Order{
		Provider:    mockProvider,
		OrderID:     fmt.Sprintf("mock_order_%06d", n),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}, nil
}

func (m *Mock) VerifyPayment(_ context.Context, proof Proof) Verification {
	if proof.OrderID == "" || proof.PaymentID == "" {
		return Verification{Verified: false, Reason: "missing payment details"}
	}
	if !hmac.Equal([]byte(proof.Signature), []byte(m.SignProof(proof.OrderID, proof.PaymentID))) {
		return Verification{Verified: false, Reason: "invalid payment signature"}
	}
	return Verification{Verified: true}
}

// SignProof produces the signature a successful mock checkout would return.
// Exposed so tests and the development checkout page can mint valid proofs.
func (m *Mock) SignProof(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}
