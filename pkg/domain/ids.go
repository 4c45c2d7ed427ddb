package domain

import (
	"github.com/google/uuid"

	dErrors "ngoconnect/pkg/domain-errors"
)

// Typed identifiers prevent cross-entity ID mixups at compile time. Parse
// helpers enforce the trust-boundary invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
type (
	UserID        uuid.UUID
	NGOID         uuid.UUID
	CampaignID    uuid.UUID
	OpportunityID uuid.UUID
	DonationID    uuid.UUID
	ApplicationID uuid.UUID
	CertificateID uuid.UUID
)

func (i UserID) String() string        { return uuid.UUID(i).String() }
func (i NGOID) String() string         { return uuid.UUID(i).String() }
func (i CampaignID) String() string    { return uuid.UUID(i).String() }
func (i OpportunityID) String() string { return uuid.UUID(i).String() }
func (i DonationID) String() string    { return uuid.UUID(i).String() }
func (i ApplicationID) String() string { return uuid.UUID(i).String() }
func (i CertificateID) String() string { return uuid.UUID(i).String() }

// MarshalText/UnmarshalText keep the wire shape a canonical UUID string.
// Defined types do not inherit uuid.UUID's methods; without these,
// encoding/json emits the backing 16-byte array.

func (i UserID) MarshalText() ([]byte, error)        { return uuid.UUID(i).MarshalText() }
func (i NGOID) MarshalText() ([]byte, error)         { return uuid.UUID(i).MarshalText() }
func (i CampaignID) MarshalText() ([]byte, error)    { return uuid.UUID(i).MarshalText() }
func (i OpportunityID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i DonationID) MarshalText() ([]byte, error)    { return uuid.UUID(i).MarshalText() }
func (i ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i CertificateID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }

func (i *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *NGOID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *CampaignID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *OpportunityID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *DonationID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *ApplicationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *CertificateID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i UserID) IsZero() bool        { return uuid.UUID(i) == uuid.Nil }
func (i NGOID) IsZero() bool         { return uuid.UUID(i) == uuid.Nil }
func (i CampaignID) IsZero() bool    { return uuid.UUID(i) == uuid.Nil }
func (i OpportunityID) IsZero() bool { return uuid.UUID(i) == uuid.Nil }
func (i DonationID) IsZero() bool    { return uuid.UUID(i) == uuid.Nil }
func (i ApplicationID) IsZero() bool { return uuid.UUID(i) == uuid.Nil }
func (i CertificateID) IsZero() bool { return uuid.UUID(i) == uuid.Nil }

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	if len(raw) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is malformed")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is malformed")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	return UserID(parsed), err
}

func ParseNGOID(raw string) (NGOID, error) {
	parsed, err := parseUUID(raw, "ngo id")
	return NGOID(parsed), err
}

func ParseCampaignID(raw string) (CampaignID, error) {
	parsed, err := parseUUID(raw, "campaign id")
	return CampaignID(parsed), err
}

func ParseOpportunityID(raw string) (OpportunityID, error) {
	parsed, err := parseUUID(raw, "opportunity id")
	return OpportunityID(parsed), err
}

func ParseDonationID(raw string) (DonationID, error) {
	parsed, err := parseUUID(raw, "donation id")
	return DonationID(parsed), err
}

func ParseApplicationID(raw string) (ApplicationID, error) {
	parsed, err := parseUUID(raw, "application id")
	return ApplicationID(parsed), err
}

func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw, "certificate id")
	return CertificateID(parsed), err
}
