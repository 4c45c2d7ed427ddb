package store

import (
	"context"

	"ngoconnect/internal/campaign"
	id "ngoconnect/pkg/domain"
)

// Store is the contract this engine requires of the campaign collaborator.
// Implementations return sentinel errors; services translate them.
type Store interface {
	SaveCampaign(ctx context.Context, c *campaign.Campaign) error
	FindCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
	// IncrementRaised atomically adds amountMinor to the campaign's current
	// amount. Never read-modify-write: concurrent donors must all land.
	IncrementRaised(ctx context.Context, campaignID id.CampaignID, amountMinor int64) error

	SaveOpportunity(ctx context.Context, o *campaign.Opportunity) error
	FindOpportunity(ctx context.Context, opportunityID id.OpportunityID) (*campaign.Opportunity, error)
	// AppendApplicant adds the user to the opportunity roster, idempotently.
	AppendApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error
	// RemoveApplicant drops the user from the roster on withdrawal.
	RemoveApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error
}
