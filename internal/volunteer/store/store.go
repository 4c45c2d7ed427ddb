package store

import (
	"context"

	"ngoconnect/internal/volunteer"
	id "ngoconnect/pkg/domain"
)

// Store is the volunteer application ledger. Implementations return the
// sentinel errors from pkg/platform/sentinel; services translate them into
// coded domain errors.
type Store interface {
	Create(ctx context.Context, a *volunteer.Application) error
	FindByID(ctx context.Context, applicationID id.ApplicationID) (*volunteer.Application, error)

	// Execute runs validate and mutate under the per-application lock and
	// returns the updated row. It is the only way to change an application
	// after creation.
	Execute(ctx context.Context, applicationID id.ApplicationID,
		validate func(*volunteer.Application) error,
		mutate func(*volunteer.Application)) (*volunteer.Application, error)

	// FindActiveByApplicantAndOpportunity returns the applicant's live
	// (applied or assigned) application for the opportunity, or
	// sentinel.ErrNotFound.
	FindActiveByApplicantAndOpportunity(ctx context.Context, applicantID id.UserID, opportunityID id.OpportunityID) (*volunteer.Application, error)

	// CountActiveByOpportunity counts applications holding a spot.
	CountActiveByOpportunity(ctx context.Context, opportunityID id.OpportunityID) (int, error)

	// ListByApplicant returns the applicant's history newest first,
	// excluding withdrawn applications.
	ListByApplicant(ctx context.Context, applicantID id.UserID) ([]*volunteer.Application, error)

	// ListByNGO returns every application against the organisation's
	// opportunities, newest first.
	ListByNGO(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error)

	// ListPendingApproval returns the organisation's certificate approval
	// queue, oldest first.
	ListPendingApproval(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error)
}
