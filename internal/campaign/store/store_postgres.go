package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ngoconnect/internal/campaign"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// Postgres persists campaigns and opportunities in PostgreSQL. The raised
// total is incremented server-side so concurrent donations serialize in the
// database, not in application code.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) SaveCampaign(ctx context.Context, c *campaign.Campaign) error {
	query := `
		INSERT INTO campaigns (id, ngo_id, ngo_name, title, goal_amount_minor, current_amount_minor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			ngo_name = EXCLUDED.ngo_name,
			title = EXCLUDED.title,
			goal_amount_minor = EXCLUDED.goal_amount_minor
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.NGOID), c.NGOName, c.Title, c.GoalAmountMinor, c.CurrentAmountMinor, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	return nil
}

func (s *Postgres) FindCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var cid, ngoID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ngo_id, ngo_name, title, goal_amount_minor, current_amount_minor, created_at
		FROM campaigns WHERE id = $1
	`, uuid.UUID(campaignID)).Scan(&cid, &ngoID, &c.NGOName, &c.Title, &c.GoalAmountMinor, &c.CurrentAmountMinor, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find campaign: %w", err)
	}
	c.ID = id.CampaignID(cid)
	c.NGOID = id.NGOID(ngoID)
	return &c, nil
}

func (s *Postgres) IncrementRaised(ctx context.Context, campaignID id.CampaignID, amountMinor int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET current_amount_minor = current_amount_minor + $2 WHERE id = $1
	`, uuid.UUID(campaignID), amountMinor)
	if err != nil {
		return fmt.Errorf("increment campaign total: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment campaign total: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) SaveOpportunity(ctx context.Context, o *campaign.Opportunity) error {
	query := `
		INSERT INTO volunteer_opportunities (id, ngo_id, ngo_name, title, location, skills, spots, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			ngo_name = EXCLUDED.ngo_name,
			title = EXCLUDED.title,
			location = EXCLUDED.location,
			skills = EXCLUDED.skills,
			spots = EXCLUDED.spots
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(o.ID), uuid.UUID(o.NGOID), o.NGOName, o.Title, o.Location, pq.Array(o.Skills), o.Spots, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save opportunity: %w", err)
	}
	return nil
}

func (s *Postgres) FindOpportunity(ctx context.Context, opportunityID id.OpportunityID) (*campaign.Opportunity, error) {
	var o campaign.Opportunity
	var oid, ngoID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ngo_id, ngo_name, title, location, skills, spots, created_at
		FROM volunteer_opportunities WHERE id = $1
	`, uuid.UUID(opportunityID)).Scan(&oid, &ngoID, &o.NGOName, &o.Title, &o.Location, pq.Array(&o.Skills), &o.Spots, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find opportunity: %w", err)
	}
	o.ID = id.OpportunityID(oid)
	o.NGOID = id.NGOID(ngoID)
	return &o, nil
}

func (s *Postgres) AppendApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunity_applicants (opportunity_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(opportunityID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("append applicant: %w", err)
	}
	return nil
}

func (s *Postgres) RemoveApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM opportunity_applicants WHERE opportunity_id = $1 AND user_id = $2
	`, uuid.UUID(opportunityID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("remove applicant: %w", err)
	}
	return nil
}
