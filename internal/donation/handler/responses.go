package handler

import (
	"ngoconnect/internal/donation"
	"ngoconnect/internal/donation/service"
	"ngoconnect/internal/gateway"
)

// InitiateResponse is the HTTP response for
// POST /donations/campaign/{campaignID}/initiate.
type InitiateResponse struct {
	Donation     *donation.Donation `json:"donation"`
	GatewayOrder *gateway.Order     `json:"gateway_order"`
}

// ConfirmResponse is the HTTP response for POST /donations/{donationID}/confirm.
type ConfirmResponse struct {
	Donation       *donation.Donation `json:"donation"`
	Receipt        *donation.Receipt  `json:"receipt"`
	ApprovalStatus string             `json:"certificate_approval_status"`
}

// ReceiptResponse is the HTTP response for GET /donations/{donationID}/receipt.
type ReceiptResponse struct {
	Receipt  *donation.Receipt `json:"receipt"`
	Rendered string            `json:"rendered"`
}

// ListResponse is the HTTP response for donor and NGO listing endpoints.
type ListResponse struct {
	Donations []*donation.Donation `json:"donations"`
}

// TransactionsResponse is the HTTP response for GET /donations/ngo/transactions.
type TransactionsResponse struct {
	Summary   *service.TransactionSummary `json:"summary"`
	Donations []*donation.Donation        `json:"donations"`
}

// DecisionResponse is the HTTP response for the certificate decision endpoint.
type DecisionResponse struct {
	Donation          *donation.Donation `json:"donation"`
	CertificateID     string             `json:"certificate_id,omitempty"`
	CertificateNumber string             `json:"certificate_number,omitempty"`
}

func donationsOrEmpty(donations []*donation.Donation) []*donation.Donation {
	if donations == nil {
		return []*donation.Donation{}
	}
	return donations
}
