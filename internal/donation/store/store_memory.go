package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ngoconnect/internal/donation"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// InMemory keeps donations in a mutex-guarded map. The single mutex is the
// per-donation lock Execute relies on.
type InMemory struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*donation.Donation
}

func NewInMemory() *InMemory {
	return &InMemory{donations: make(map[id.DonationID]*donation.Donation)}
}

func (s *InMemory) Create(_ context.Context, d *donation.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	clone := *d
	s.donations[d.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donationID id.DonationID) (*donation.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (s *InMemory) Execute(_ context.Context, donationID id.DonationID,
	validate func(*donation.Donation) error,
	mutate func(*donation.Donation)) (*donation.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := *d
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.donations[donationID] = &working

	result := working
	return &result, nil
}

func (s *InMemory) ListByDonor(_ context.Context, donorID id.UserID) ([]*donation.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*donation.Donation
	for _, d := range s.donations {
		if d.DonorID == donorID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListByNGO(_ context.Context, ngoID id.NGOID) ([]*donation.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*donation.Donation
	for _, d := range s.donations {
		if d.NGOID == ngoID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListPendingApproval(_ context.Context, ngoID id.NGOID) ([]*donation.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*donation.Donation
	for _, d := range s.donations {
		if d.NGOID == ngoID && d.Approval.Status == id.ApprovalPending {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListStaleInitiated(_ context.Context, cutoff time.Time) ([]id.DonationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.DonationID
	for _, d := range s.donations {
		if d.Status == donation.StatusInitiated && d.CreatedAt.Before(cutoff) {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

func sortNewestFirst(donations []*donation.Donation) {
	sort.Slice(donations, func(i, j int) bool {
		return donations[i].CreatedAt.After(donations[j].CreatedAt)
	})
}
