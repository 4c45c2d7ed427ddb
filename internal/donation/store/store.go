// Package store persists donations. Both implementations guarantee that
// Execute runs its validate and mutate callbacks under per-donation mutual
// exclusion: the memory store holds a mutex, the PostgreSQL store holds a row
// lock inside a transaction.
package store

import (
	"context"
	"time"

	"ngoconnect/internal/donation"
	id "ngoconnect/pkg/domain"
)

type Store interface {
	// Create persists a new donation. Returns sentinel.ErrAlreadyExists if
	// the id is taken.
	Create(ctx context.Context, d *donation.Donation) error

	// FindByID returns the donation or sentinel.ErrNotFound.
	FindByID(ctx context.Context, donationID id.DonationID) (*donation.Donation, error)

	// Execute atomically loads the donation, runs validate, and if validate
	// returns nil applies mutate and persists the result. The returned
	// donation reflects the stored state after the call.
	Execute(ctx context.Context, donationID id.DonationID,
		validate func(*donation.Donation) error,
		mutate func(*donation.Donation)) (*donation.Donation, error)

	// ListByDonor returns the donor's donations, newest first.
	ListByDonor(ctx context.Context, donorID id.UserID) ([]*donation.Donation, error)

	// ListByNGO returns all donations against the NGO's campaigns, newest
	// first.
	ListByNGO(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error)

	// ListPendingApproval returns the NGO's donations awaiting a
	// certificate decision, oldest first.
	ListPendingApproval(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error)

	// ListStaleInitiated returns ids of donations still initiated and
	// created before the cutoff.
	ListStaleInitiated(ctx context.Context, cutoff time.Time) ([]id.DonationID, error)
}
