package donation

import (
	"fmt"
	"strings"
	"time"

	dErrors "ngoconnect/pkg/domain-errors"
)

// Receipt is the stable summary of a completed donation. It is derived from
// the donation row on every read, never stored.
type Receipt struct {
	Number        string        `json:"number"`
	DonorName     string        `json:"donor_name"`
	AmountMinor   int64         `json:"amount_minor"`
	Currency      string        `json:"currency"`
	Method        PaymentMethod `json:"payment_method"`
	CampaignTitle string        `json:"campaign_title"`
	NGOName       string        `json:"ngo_name"`
	Date          time.Time     `json:"date"`
}

// ReceiptFrom builds the receipt for a completed donation.
func ReceiptFrom(d *Donation) (*Receipt, error) {
	if d.Status != StatusCompleted {
		return nil, dErrors.New(dErrors.CodeBadRequest, "receipt is available only for completed donations")
	}
	return &Receipt{
		Number:        d.ReceiptNumber,
		DonorName:     d.DonorName,
		AmountMinor:   d.AmountMinor,
		Currency:      d.Currency,
		Method:        d.Method,
		CampaignTitle: d.CampaignTitle,
		NGOName:       d.NGOName,
		Date:          *d.CompletedAt,
	}, nil
}

// Render produces the line-oriented text the UI prints directly.
func (r *Receipt) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt %s\n", r.Number)
	fmt.Fprintf(&b, "Date: %s\n", r.Date.Format("02 January 2006"))
	fmt.Fprintf(&b, "Donor: %s\n", r.DonorName)
	fmt.Fprintf(&b, "Campaign: %s\n", r.CampaignTitle)
	fmt.Fprintf(&b, "Organisation: %s\n", r.NGOName)
	fmt.Fprintf(&b, "Amount: %s %s\n", r.Currency, formatMinor(r.AmountMinor))
	fmt.Fprintf(&b, "Payment method: %s\n", r.Method)
	return b.String()
}

func formatMinor(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
