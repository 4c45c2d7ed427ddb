package store

import (
	"context"
	"sort"
	"sync"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// InMemory keeps certificates in maps guarded by a mutex. The byEntity index
// enforces the one-per-entity invariant atomically with creation.
type InMemory struct {
	mu       sync.Mutex
	byID     map[id.CertificateID]*certificate.Certificate
	byEntity map[string]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[id.CertificateID]*certificate.Certificate),
		byEntity: make(map[string]id.CertificateID),
	}
}

func (s *InMemory) Create(_ context.Context, cert *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cert.Entity.Key()
	if _, exists := s.byEntity[key]; exists {
		return sentinel.ErrAlreadyExists
	}
	if _, exists := s.byID[cert.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *cert
	s.byID[cert.ID] = &clone
	s.byEntity[key] = cert.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certificateID id.CertificateID) (*certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *cert
	return &clone, nil
}

func (s *InMemory) FindByEntity(_ context.Context, ref certificate.EntityRef) (*certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	certID, ok := s.byEntity[ref.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[certID]
	return &clone, nil
}

func (s *InMemory) ListByBeneficiary(_ context.Context, userID id.UserID) ([]*certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*certificate.Certificate
	for _, cert := range s.byID {
		if cert.BeneficiaryID == userID {
			clone := *cert
			out = append(out, &clone)
		}
	}
	// Newest first, matching the listing endpoints.
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (s *InMemory) MarkDelivered(ctx context.Context, certificateID id.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certificateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := requestcontext.Now(ctx)
	cert.DeliveredAt = &now
	return nil
}
