package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ngoconnect/internal/donation"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// Postgres persists donations. Execute wraps the validate/mutate round trip
// in a transaction with SELECT ... FOR UPDATE, so concurrent Confirms on the
// same donation serialize at the row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

const donationColumns = `
	id, campaign_id, donor_id, ngo_id, amount_minor, currency, method, message,
	donor_name, donor_email, campaign_title, ngo_name, status, failure_reason,
	idempotency_key, gateway_order_id, gateway_payment_id, receipt_number,
	approval_status, approval_requested_at, approval_reviewed_at, approval_reviewed_by, approval_note,
	created_at, completed_at
`

func (s *Postgres) Create(ctx context.Context, d *donation.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err := s.db.ExecContext(ctx, query, donationArgs(d)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, donationID id.DonationID) (*donation.Donation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, uuid.UUID(donationID))
	return scanDonation(row)
}

func (s *Postgres) Execute(ctx context.Context, donationID id.DonationID,
	validate func(*donation.Donation) error,
	mutate func(*donation.Donation)) (*donation.Donation, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin donation transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1 FOR UPDATE`, uuid.UUID(donationID))
	d, err := scanDonation(row)
	if err != nil {
		return nil, err
	}

	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)

	query := `
		UPDATE donations SET
			status = $2, failure_reason = $3,
			gateway_order_id = $4, gateway_payment_id = $5, receipt_number = $6,
			approval_status = $7, approval_requested_at = $8, approval_reviewed_at = $9,
			approval_reviewed_by = $10, approval_note = $11,
			completed_at = $12
		WHERE id = $1
	`
	var reviewedBy any
	if !d.Approval.ReviewedBy.IsZero() {
		reviewedBy = uuid.UUID(d.Approval.ReviewedBy)
	}
	_, err = tx.ExecContext(ctx, query,
		uuid.UUID(d.ID), string(d.Status), d.FailureReason,
		nullString(d.GatewayOrderID), nullString(d.GatewayPaymentID), nullString(d.ReceiptNumber),
		string(d.Approval.Status), d.Approval.RequestedAt, d.Approval.ReviewedAt,
		reviewedBy, d.Approval.Note,
		d.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("update donation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit donation transaction: %w", err)
	}
	return d, nil
}

func (s *Postgres) ListByDonor(ctx context.Context, donorID id.UserID) ([]*donation.Donation, error) {
	return s.list(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE donor_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(donorID))
}

func (s *Postgres) ListByNGO(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error) {
	return s.list(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE ngo_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(ngoID))
}

func (s *Postgres) ListPendingApproval(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error) {
	return s.list(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE ngo_id = $1 AND approval_status = 'pending' ORDER BY created_at`,
		uuid.UUID(ngoID))
}

func (s *Postgres) ListStaleInitiated(ctx context.Context, cutoff time.Time) ([]id.DonationID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM donations WHERE status = 'initiated' AND created_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale donations: %w", err)
	}
	defer rows.Close()

	var out []id.DonationID
	for rows.Next() {
		var donationID uuid.UUID
		if err := rows.Scan(&donationID); err != nil {
			return nil, fmt.Errorf("scan stale donation id: %w", err)
		}
		out = append(out, id.DonationID(donationID))
	}
	return out, rows.Err()
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*donation.Donation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []*donation.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func donationArgs(d *donation.Donation) []any {
	var reviewedBy any
	if !d.Approval.ReviewedBy.IsZero() {
		reviewedBy = uuid.UUID(d.Approval.ReviewedBy)
	}
	return []any{
		uuid.UUID(d.ID), uuid.UUID(d.CampaignID), uuid.UUID(d.DonorID), uuid.UUID(d.NGOID),
		d.AmountMinor, d.Currency, string(d.Method), d.Message,
		d.DonorName, d.DonorEmail, d.CampaignTitle, d.NGOName,
		string(d.Status), d.FailureReason,
		d.IdempotencyKey, nullString(d.GatewayOrderID), nullString(d.GatewayPaymentID), nullString(d.ReceiptNumber),
		string(d.Approval.Status), d.Approval.RequestedAt, d.Approval.ReviewedAt, reviewedBy, d.Approval.Note,
		d.CreatedAt, d.CompletedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*donation.Donation, error) {
	var d donation.Donation
	var donationID, campaignID, donorID, ngoID uuid.UUID
	var method, status, approvalStatus string
	var orderID, paymentID, receiptNumber sql.NullString
	var requestedAt, reviewedAt, completedAt sql.NullTime
	var reviewedBy uuid.NullUUID

	err := row.Scan(&donationID, &campaignID, &donorID, &ngoID,
		&d.AmountMinor, &d.Currency, &method, &d.Message,
		&d.DonorName, &d.DonorEmail, &d.CampaignTitle, &d.NGOName,
		&status, &d.FailureReason,
		&d.IdempotencyKey, &orderID, &paymentID, &receiptNumber,
		&approvalStatus, &requestedAt, &reviewedAt, &reviewedBy, &d.Approval.Note,
		&d.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}

	d.ID = id.DonationID(donationID)
	d.CampaignID = id.CampaignID(campaignID)
	d.DonorID = id.UserID(donorID)
	d.NGOID = id.NGOID(ngoID)
	d.Method = donation.PaymentMethod(method)
	d.Status = donation.Status(status)
	d.GatewayOrderID = orderID.String
	d.GatewayPaymentID = paymentID.String
	d.ReceiptNumber = receiptNumber.String
	d.Approval.Status = id.ApprovalStatus(approvalStatus)
	if requestedAt.Valid {
		d.Approval.RequestedAt = &requestedAt.Time
	}
	if reviewedAt.Valid {
		d.Approval.ReviewedAt = &reviewedAt.Time
	}
	if reviewedBy.Valid {
		d.Approval.ReviewedBy = id.NGOID(reviewedBy.UUID)
	}
	if completedAt.Valid {
		d.CompletedAt = &completedAt.Time
	}
	return &d, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
