package store

import (
	"context"
	"sort"
	"sync"

	"ngoconnect/internal/volunteer"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// InMemory keeps applications in a mutex-guarded map. The single mutex is
// the per-application lock Execute relies on, and also makes the
// active-application uniqueness check atomic with Create.
type InMemory struct {
	mu           sync.RWMutex
	applications map[id.ApplicationID]*volunteer.Application
}

func NewInMemory() *InMemory {
	return &InMemory{applications: make(map[id.ApplicationID]*volunteer.Application)}
}

func (s *InMemory) Create(_ context.Context, a *volunteer.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[a.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	for _, existing := range s.applications {
		if existing.ApplicantID == a.ApplicantID &&
			existing.OpportunityID == a.OpportunityID &&
			existing.Status.Active() {
			return sentinel.ErrAlreadyExists
		}
	}
	clone := *a
	s.applications[a.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, applicationID id.ApplicationID) (*volunteer.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemory) Execute(_ context.Context, applicationID id.ApplicationID,
	validate func(*volunteer.Application) error,
	mutate func(*volunteer.Application)) (*volunteer.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := *a
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.applications[applicationID] = &working

	result := working
	return &result, nil
}

func (s *InMemory) FindActiveByApplicantAndOpportunity(_ context.Context, applicantID id.UserID, opportunityID id.OpportunityID) (*volunteer.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.applications {
		if a.ApplicantID == applicantID && a.OpportunityID == opportunityID && a.Status.Active() {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CountActiveByOpportunity(_ context.Context, opportunityID id.OpportunityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.applications {
		if a.OpportunityID == opportunityID && a.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) ListByApplicant(_ context.Context, applicantID id.UserID) ([]*volunteer.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*volunteer.Application
	for _, a := range s.applications {
		if a.ApplicantID == applicantID && a.Status != volunteer.StatusWithdrawn {
			clone := *a
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListByNGO(_ context.Context, ngoID id.NGOID) ([]*volunteer.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*volunteer.Application
	for _, a := range s.applications {
		if a.NGOID == ngoID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListPendingApproval(_ context.Context, ngoID id.NGOID) ([]*volunteer.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*volunteer.Application
	for _, a := range s.applications {
		if a.NGOID == ngoID && a.Approval.Status == id.ApprovalPending {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func sortNewestFirst(applications []*volunteer.Application) {
	sort.Slice(applications, func(i, j int) bool {
		return applications[i].CreatedAt.After(applications[j].CreatedAt)
	})
}
