package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const razorpayProvider = "razorpay"

// Razorpay creates orders against the Razorpay Orders API and verifies
// checkout signatures (HMAC-SHA256 over "orderID|paymentID" keyed with the
// API secret).
type Razorpay struct {
	keyID   string
	secret  string
	baseURL string
	client  *http.Client
}

// RazorpayOption configures the adapter.
type RazorpayOption func(*Razorpay)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) RazorpayOption {
	return func(r *Razorpay) { r.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) RazorpayOption {
	return func(r *Razorpay) { r.client = client }
}

func NewRazorpay(keyID, secret string, opts ...RazorpayOption) *Razorpay {
	r := &Razorpay{
		keyID:   keyID,
		secret:  secret,
		baseURL: "https://api.razorpay.com",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Error    *struct {
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("invalid amount for payment order: %d", req.AmountMinor)
	}

	payload, err := json.Marshal(razorpayOrderRequest{
		Amount:         req.AmountMinor,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.SetBasicAuth(r.keyID, r.secret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	var body razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if body.Error != nil && body.Error.Description != "" {
			return nil, fmt.Errorf("gateway rejected order: %s", body.Error.Description)
		}
		return nil, fmt.Errorf("gateway rejected order: status %d", resp.StatusCode)
	}

	return &Order{
		Provider:    razorpayProvider,
		KeyID:       r.keyID,
		OrderID:     body.ID,
		AmountMinor: body.Amount,
		Currency:    body.Currency,
		Receipt:     body.Receipt,
		Status:      body.Status,
	}, nil
}

func (r *Razorpay) VerifyPayment(_ context.Context, proof Proof) Verification {
	if proof.OrderID == "" || proof.PaymentID == "" {
		return Verification{Verified: false, Reason: "missing payment details"}
	}
	mac := hmac.New(sha256.New, []byte(r.secret))
	fmt.Fprintf(mac, "%s|%s", proof.OrderID, proof.PaymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	if proof.Signature == "" || !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return Verification{Verified: false, Reason: "invalid payment signature"}
	}
	return Verification{Verified: true}
}
