package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/donation"
	"ngoconnect/internal/donation/store"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
}

func (s *MemoryStoreSuite) newDonation(createdAt time.Time) *donation.Donation {
	return &donation.Donation{
		ID:          id.DonationID(uuid.New()),
		CampaignID:  id.CampaignID(uuid.New()),
		DonorID:     id.UserID(uuid.New()),
		NGOID:       id.NGOID(uuid.New()),
		AmountMinor: 100_00,
		Currency:    "INR",
		Method:      donation.MethodUPI,
		Status:      donation.StatusInitiated,
		Approval:    id.NewApprovalState(),
		CreatedAt:   createdAt,
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	d := s.newDonation(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, d))

	found, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.AmountMinor, found.AmountMinor)

	s.Require().ErrorIs(s.store.Create(s.ctx, d), sentinel.ErrAlreadyExists)

	_, err = s.store.FindByID(s.ctx, id.DonationID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestExecuteValidateFailureLeavesRowUntouched() {
	d := s.newDonation(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, d))

	_, err := s.store.Execute(s.ctx, d.ID,
		func(*donation.Donation) error {
			return dErrors.New(dErrors.CodeConflict, "nope")
		},
		func(d *donation.Donation) { d.Status = donation.StatusFailed },
	)
	s.Require().Error(err)

	stored, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusInitiated, stored.Status)
}

func (s *MemoryStoreSuite) TestExecuteSerializesTransitions() {
	d := s.newDonation(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, d))

	var completions int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, d.ID,
				func(d *donation.Donation) error { return nil },
				func(d *donation.Donation) {
					if d.Status == donation.StatusInitiated {
						d.Status = donation.StatusCompleted
						mu.Lock()
						completions++
						mu.Unlock()
					}
				},
			)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(1, completions, "only one executor may observe the initiated state")
}

func (s *MemoryStoreSuite) TestListsAreScopedAndOrdered() {
	donor := id.UserID(uuid.New())
	ngo := id.NGOID(uuid.New())

	older := s.newDonation(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	older.DonorID = donor
	older.NGOID = ngo
	newer := s.newDonation(time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC))
	newer.DonorID = donor
	newer.NGOID = ngo
	stranger := s.newDonation(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	for _, d := range []*donation.Donation{older, newer, stranger} {
		s.Require().NoError(s.store.Create(s.ctx, d))
	}

	mine, err := s.store.ListByDonor(s.ctx, donor)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(newer.ID, mine[0].ID)
	s.Equal(older.ID, mine[1].ID)

	byNGO, err := s.store.ListByNGO(s.ctx, ngo)
	s.Require().NoError(err)
	s.Len(byNGO, 2)
}

func (s *MemoryStoreSuite) TestListPendingApprovalOldestFirst() {
	ngo := id.NGOID(uuid.New())
	var want []id.DonationID
	for hour := 11; hour >= 9; hour-- {
		d := s.newDonation(time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC))
		d.NGOID = ngo
		d.Status = donation.StatusCompleted
		d.Approval.Request(d.CreatedAt)
		s.Require().NoError(s.store.Create(s.ctx, d))
		want = append([]id.DonationID{d.ID}, want...)
	}

	pending, err := s.store.ListPendingApproval(s.ctx, ngo)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	for i, d := range pending {
		s.Equal(want[i], d.ID)
	}
}

func (s *MemoryStoreSuite) TestListStaleInitiated() {
	cutoff := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	stale := s.newDonation(cutoff.Add(-time.Hour))
	fresh := s.newDonation(cutoff.Add(time.Hour))
	settled := s.newDonation(cutoff.Add(-time.Hour))
	settled.Status = donation.StatusCompleted

	for _, d := range []*donation.Donation{stale, fresh, settled} {
		s.Require().NoError(s.store.Create(s.ctx, d))
	}

	ids, err := s.store.ListStaleInitiated(s.ctx, cutoff)
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(stale.ID, ids[0])
}
