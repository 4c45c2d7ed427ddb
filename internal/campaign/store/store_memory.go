package store

import (
	"context"
	"sync"

	"ngoconnect/internal/campaign"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
)

// InMemory keeps campaigns and opportunities in maps guarded by a single
// mutex, which also makes roster appends and total increments atomic.
type InMemory struct {
	mu            sync.Mutex
	campaigns     map[id.CampaignID]*campaign.Campaign
	opportunities map[id.OpportunityID]*campaign.Opportunity
	applicants    map[id.OpportunityID]map[id.UserID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		campaigns:     make(map[id.CampaignID]*campaign.Campaign),
		opportunities: make(map[id.OpportunityID]*campaign.Opportunity),
		applicants:    make(map[id.OpportunityID]map[id.UserID]struct{}),
	}
}

func (s *InMemory) SaveCampaign(_ context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *c
	s.campaigns[c.ID] = &clone
	return nil
}

func (s *InMemory) FindCampaign(_ context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemory) IncrementRaised(_ context.Context, campaignID id.CampaignID, amountMinor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.CurrentAmountMinor += amountMinor
	return nil
}

func (s *InMemory) SaveOpportunity(_ context.Context, o *campaign.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *o
	clone.Skills = append([]string(nil), o.Skills...)
	s.opportunities[o.ID] = &clone
	return nil
}

func (s *InMemory) FindOpportunity(_ context.Context, opportunityID id.OpportunityID) (*campaign.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.opportunities[opportunityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *o
	clone.Skills = append([]string(nil), o.Skills...)
	return &clone, nil
}

func (s *InMemory) AppendApplicant(_ context.Context, opportunityID id.OpportunityID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities[opportunityID]; !ok {
		return sentinel.ErrNotFound
	}
	roster, ok := s.applicants[opportunityID]
	if !ok {
		roster = make(map[id.UserID]struct{})
		s.applicants[opportunityID] = roster
	}
	roster[userID] = struct{}{}
	return nil
}

func (s *InMemory) RemoveApplicant(_ context.Context, opportunityID id.OpportunityID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roster, ok := s.applicants[opportunityID]; ok {
		delete(roster, userID)
	}
	return nil
}
