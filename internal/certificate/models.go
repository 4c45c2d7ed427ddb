// Package certificate mints and renders the artifacts issued after NGO
// approval. A certificate is bound 1:1 to either a donation or a volunteer
// application and is immutable once issued; only DeliveredAt is stamped later.
package certificate

import (
	"time"

	id "ngoconnect/pkg/domain"
)

// Kind distinguishes the two certificate families.
type Kind string

const (
	KindDonation  Kind = "donation"
	KindVolunteer Kind = "volunteer"
)

// EntityRef points at exactly one donation or volunteer application.
type EntityRef struct {
	Kind          Kind             `json:"kind"`
	DonationID    id.DonationID    `json:"donation_id,omitempty"`
	ApplicationID id.ApplicationID `json:"application_id,omitempty"`
}

// DonationRef builds the reference for a donation-backed certificate.
func DonationRef(donationID id.DonationID) EntityRef {
	return EntityRef{Kind: KindDonation, DonationID: donationID}
}

// VolunteerRef builds the reference for a volunteer-backed certificate.
func VolunteerRef(applicationID id.ApplicationID) EntityRef {
	return EntityRef{Kind: KindVolunteer, ApplicationID: applicationID}
}

// Key returns the unique entity binding used for at-most-once issuance.
func (r EntityRef) Key() string {
	if r.Kind == KindDonation {
		return string(KindDonation) + ":" + r.DonationID.String()
	}
	return string(KindVolunteer) + ":" + r.ApplicationID.String()
}

// Metadata is everything needed to re-render the certificate content. It is
// captured at issuance so rendering never reaches back into the ledger.
type Metadata struct {
	RecipientName           string     `json:"recipientName"`
	RecipientEmail          string     `json:"recipientEmail,omitempty"`
	NGOName                 string     `json:"ngoName"`
	CampaignTitle           string     `json:"campaignTitle,omitempty"`
	ActivityTitle           string     `json:"activityTitle,omitempty"`
	AssignedTask            string     `json:"assignedTask,omitempty"`
	PaymentMethod           string     `json:"paymentMethod,omitempty"`
	ContributionAmountMinor int64      `json:"contributionAmountMinor,omitempty"`
	CompletionDate          *time.Time `json:"completionDate,omitempty"`
	ActivityHours           float64    `json:"activityHours,omitempty"`
}

// Spec is the issuance request built by the owning workflow.
type Spec struct {
	Entity        EntityRef
	BeneficiaryID id.UserID
	NGOID         id.NGOID
	Title         string
	Metadata      Metadata
}

// Certificate is the issued artifact.
//
// Invariants:
//   - at most one certificate exists per donation/application
//   - Number is globally unique and never reused
//   - all fields except DeliveredAt are immutable after issuance
type Certificate struct {
	ID            id.CertificateID `json:"id"`
	Entity        EntityRef        `json:"entity"`
	BeneficiaryID id.UserID        `json:"-"`
	NGOID         id.NGOID         `json:"-"`
	Type          Kind             `json:"type"`
	Title         string           `json:"title"`
	Number        string           `json:"certificateNumber"`
	IssuedAt      time.Time        `json:"issuedAt"`
	DeliveredAt   *time.Time       `json:"deliveredAt,omitempty"`
	Metadata      Metadata         `json:"metadata"`
}
