package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// Postgres persists certificates. Unique indexes on donation_id and
// application_id are the durable at-most-once guarantee; a concurrent double
// issuance surfaces here as a unique violation.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, cert *certificate.Certificate) error {
	metadata, err := json.Marshal(cert.Metadata)
	if err != nil {
		return fmt.Errorf("marshal certificate metadata: %w", err)
	}

	var donationID, applicationID any
	if cert.Entity.Kind == certificate.KindDonation {
		donationID = uuid.UUID(cert.Entity.DonationID)
	} else {
		applicationID = uuid.UUID(cert.Entity.ApplicationID)
	}

	query := `
		INSERT INTO certificates
			(id, entity_kind, donation_id, application_id, beneficiary_id, ngo_id, title, number, issued_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(cert.ID), string(cert.Entity.Kind), donationID, applicationID,
		uuid.UUID(cert.BeneficiaryID), uuid.UUID(cert.NGOID), cert.Title, cert.Number, cert.IssuedAt, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

const certificateColumns = `
	id, entity_kind, donation_id, application_id, beneficiary_id, ngo_id, title, number, issued_at, delivered_at, metadata
`

func (s *Postgres) FindByID(ctx context.Context, certificateID id.CertificateID) (*certificate.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, uuid.UUID(certificateID))
	return scanCertificate(row)
}

func (s *Postgres) FindByEntity(ctx context.Context, ref certificate.EntityRef) (*certificate.Certificate, error) {
	var row *sql.Row
	if ref.Kind == certificate.KindDonation {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE donation_id = $1`, uuid.UUID(ref.DonationID))
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE application_id = $1`, uuid.UUID(ref.ApplicationID))
	}
	return scanCertificate(row)
}

func (s *Postgres) ListByBeneficiary(ctx context.Context, userID id.UserID) ([]*certificate.Certificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE beneficiary_id = $1 ORDER BY issued_at DESC`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*certificate.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkDelivered(ctx context.Context, certificateID id.CertificateID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE certificates SET delivered_at = $2 WHERE id = $1`,
		uuid.UUID(certificateID), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("mark certificate delivered: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark certificate delivered: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*certificate.Certificate, error) {
	var cert certificate.Certificate
	var certID, beneficiaryID, ngoID uuid.UUID
	var kind string
	var donationID, applicationID uuid.NullUUID
	var deliveredAt sql.NullTime
	var metadata []byte

	err := row.Scan(&certID, &kind, &donationID, &applicationID, &beneficiaryID, &ngoID,
		&cert.Title, &cert.Number, &cert.IssuedAt, &deliveredAt, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}

	cert.ID = id.CertificateID(certID)
	cert.BeneficiaryID = id.UserID(beneficiaryID)
	cert.NGOID = id.NGOID(ngoID)
	cert.Type = certificate.Kind(kind)
	cert.Entity.Kind = certificate.Kind(kind)
	if donationID.Valid {
		cert.Entity.DonationID = id.DonationID(donationID.UUID)
	}
	if applicationID.Valid {
		cert.Entity.ApplicationID = id.ApplicationID(applicationID.UUID)
	}
	if deliveredAt.Valid {
		cert.DeliveredAt = &deliveredAt.Time
	}
	if err := json.Unmarshal(metadata, &cert.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal certificate metadata: %w", err)
	}
	return &cert, nil
}
