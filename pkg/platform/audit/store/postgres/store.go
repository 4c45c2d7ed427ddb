package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "ngoconnect/pkg/domain"
	audit "ngoconnect/pkg/platform/audit"
)

// Store implements audit.Store on a plain append-only table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()

	var userID, ngoID any
	if !event.UserID.IsZero() {
		userID = uuid.UUID(event.UserID)
	}
	if !event.NGOID.IsZero() {
		ngoID = uuid.UUID(event.NGOID)
	}

	query := `
		INSERT INTO audit_events
			(id, category, occurred_at, user_id, ngo_id, subject, action, decision, reason, amount_minor, request_id, actor_id, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), string(category), event.Timestamp, userID, ngoID,
		event.Subject, event.Action, event.Decision, event.Reason,
		event.AmountMinor, event.RequestID, event.ActorID,
		event.IP, event.UserAgent)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

const eventColumns = `
	category, occurred_at, user_id, ngo_id, subject, action, decision, reason, amount_minor, request_id, actor_id, ip, user_agent
`

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE user_id = $1 ORDER BY occurred_at`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list audit events by user: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var event audit.Event
		var category string
		var userID, ngoID uuid.NullUUID
		err := rows.Scan(&category, &event.Timestamp, &userID, &ngoID,
			&event.Subject, &event.Action, &event.Decision, &event.Reason,
			&event.AmountMinor, &event.RequestID, &event.ActorID,
			&event.IP, &event.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if userID.Valid {
			event.UserID = id.UserID(userID.UUID)
		}
		if ngoID.Valid {
			event.NGOID = id.NGOID(ngoID.UUID)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
