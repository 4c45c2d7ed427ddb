package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ngoconnect/internal/volunteer"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// Postgres persists volunteer applications. A partial unique index on
// (applicant_id, opportunity_id) WHERE status IN ('applied','assigned')
// enforces the one-active-application rule, so racing Applies lose at the
// database rather than in application code.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

const applicationColumns = `
	id, opportunity_id, applicant_id, ngo_id,
	full_name, email, phone, preferred_activity, availability, motivation,
	opportunity_title, ngo_name, status, assigned_task, activity_hours,
	approval_status, approval_requested_at, approval_reviewed_at, approval_reviewed_by, approval_note,
	created_at, completed_at
`

func (s *Postgres) Create(ctx context.Context, a *volunteer.Application) error {
	query := `
		INSERT INTO volunteer_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := s.db.ExecContext(ctx, query, applicationArgs(a)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, applicationID id.ApplicationID) (*volunteer.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications WHERE id = $1`, uuid.UUID(applicationID))
	return scanApplication(row)
}

func (s *Postgres) Execute(ctx context.Context, applicationID id.ApplicationID,
	validate func(*volunteer.Application) error,
	mutate func(*volunteer.Application)) (*volunteer.Application, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin application transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications WHERE id = $1 FOR UPDATE`, uuid.UUID(applicationID))
	a, err := scanApplication(row)
	if err != nil {
		return nil, err
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)

	query := `
		UPDATE volunteer_applications SET
			status = $2, assigned_task = $3, activity_hours = $4,
			approval_status = $5, approval_requested_at = $6, approval_reviewed_at = $7,
			approval_reviewed_by = $8, approval_note = $9,
			completed_at = $10
		WHERE id = $1
	`
	var reviewedBy any
	if !a.Approval.ReviewedBy.IsZero() {
		reviewedBy = uuid.UUID(a.Approval.ReviewedBy)
	}
	_, err = tx.ExecContext(ctx, query,
		uuid.UUID(a.ID), string(a.Status), a.AssignedTask, a.ActivityHours,
		string(a.Approval.Status), a.Approval.RequestedAt, a.Approval.ReviewedAt,
		reviewedBy, a.Approval.Note,
		a.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit application transaction: %w", err)
	}
	return a, nil
}

func (s *Postgres) FindActiveByApplicantAndOpportunity(ctx context.Context, applicantID id.UserID, opportunityID id.OpportunityID) (*volunteer.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications
		 WHERE applicant_id = $1 AND opportunity_id = $2 AND status IN ('applied', 'assigned')`,
		uuid.UUID(applicantID), uuid.UUID(opportunityID))
	return scanApplication(row)
}

func (s *Postgres) CountActiveByOpportunity(ctx context.Context, opportunityID id.OpportunityID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM volunteer_applications
		 WHERE opportunity_id = $1 AND status IN ('applied', 'assigned')`,
		uuid.UUID(opportunityID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active applications: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListByApplicant(ctx context.Context, applicantID id.UserID) ([]*volunteer.Application, error) {
	return s.list(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications
		 WHERE applicant_id = $1 AND status <> 'withdrawn' ORDER BY created_at DESC`,
		uuid.UUID(applicantID))
}

func (s *Postgres) ListByNGO(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error) {
	return s.list(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications WHERE ngo_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(ngoID))
}

func (s *Postgres) ListPendingApproval(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error) {
	return s.list(ctx,
		`SELECT `+applicationColumns+` FROM volunteer_applications
		 WHERE ngo_id = $1 AND approval_status = 'pending' ORDER BY created_at`,
		uuid.UUID(ngoID))
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*volunteer.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*volunteer.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func applicationArgs(a *volunteer.Application) []any {
	var reviewedBy any
	if !a.Approval.ReviewedBy.IsZero() {
		reviewedBy = uuid.UUID(a.Approval.ReviewedBy)
	}
	return []any{
		uuid.UUID(a.ID), uuid.UUID(a.OpportunityID), uuid.UUID(a.ApplicantID), uuid.UUID(a.NGOID),
		a.FullName, a.Email, a.Phone, a.PreferredActivity, a.Availability, a.Motivation,
		a.OpportunityTitle, a.NGOName, string(a.Status), a.AssignedTask, a.ActivityHours,
		string(a.Approval.Status), a.Approval.RequestedAt, a.Approval.ReviewedAt, reviewedBy, a.Approval.Note,
		a.CreatedAt, a.CompletedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*volunteer.Application, error) {
	var a volunteer.Application
	var applicationID, opportunityID, applicantID, ngoID uuid.UUID
	var status, approvalStatus string
	var requestedAt, reviewedAt, completedAt sql.NullTime
	var reviewedBy uuid.NullUUID

	err := row.Scan(&applicationID, &opportunityID, &applicantID, &ngoID,
		&a.FullName, &a.Email, &a.Phone, &a.PreferredActivity, &a.Availability, &a.Motivation,
		&a.OpportunityTitle, &a.NGOName, &status, &a.AssignedTask, &a.ActivityHours,
		&approvalStatus, &requestedAt, &reviewedAt, &reviewedBy, &a.Approval.Note,
		&a.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}

	a.ID = id.ApplicationID(applicationID)
	a.OpportunityID = id.OpportunityID(opportunityID)
	a.ApplicantID = id.UserID(applicantID)
	a.NGOID = id.NGOID(ngoID)
	a.Status = volunteer.Status(status)
	a.Approval.Status = id.ApprovalStatus(approvalStatus)
	if requestedAt.Valid {
		a.Approval.RequestedAt = &requestedAt.Time
	}
	if reviewedAt.Valid {
		a.Approval.ReviewedAt = &reviewedAt.Time
	}
	if reviewedBy.Valid {
		a.Approval.ReviewedBy = id.NGOID(reviewedBy.UUID)
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}
