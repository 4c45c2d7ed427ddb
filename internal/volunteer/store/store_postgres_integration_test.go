//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/volunteer"
	"ngoconnect/internal/volunteer/store"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	err := s.postgres.TruncateTables(s.ctx, "volunteer_applications")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newApplication() *volunteer.Application {
	return &volunteer.Application{
		ID:               id.ApplicationID(uuid.New()),
		OpportunityID:    id.OpportunityID(uuid.New()),
		ApplicantID:      id.UserID(uuid.New()),
		NGOID:            id.NGOID(uuid.New()),
		FullName:         "Ravi Kumar",
		Email:            "ravi@example.org",
		OpportunityTitle: "Weekend Tree Plantation",
		NGOName:          "Green Earth Trust",
		Status:           volunteer.StatusApplied,
		Approval:         id.NewApprovalState(),
		CreatedAt:        time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	a := s.newApplication()
	s.Require().NoError(s.store.Create(s.ctx, a))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.FullName, found.FullName)
	s.Equal(a.OpportunityTitle, found.OpportunityTitle)
	s.Equal(volunteer.StatusApplied, found.Status)
	s.True(a.CreatedAt.Equal(found.CreatedAt))
	s.Nil(found.CompletedAt)
}

func (s *PostgresStoreSuite) TestActiveUniqueIndexRejectsDuplicate() {
	first := s.newApplication()
	s.Require().NoError(s.store.Create(s.ctx, first))

	dup := s.newApplication()
	dup.ApplicantID = first.ApplicantID
	dup.OpportunityID = first.OpportunityID
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyExists)
}

func (s *PostgresStoreSuite) TestCreateAllowedAfterWithdrawal() {
	first := s.newApplication()
	s.Require().NoError(s.store.Create(s.ctx, first))

	_, err := s.store.Execute(s.ctx, first.ID,
		func(*volunteer.Application) error { return nil },
		func(a *volunteer.Application) { a.ApplyWithdrawal() })
	s.Require().NoError(err)

	again := s.newApplication()
	again.ApplicantID = first.ApplicantID
	again.OpportunityID = first.OpportunityID
	s.NoError(s.store.Create(s.ctx, again))
}

func (s *PostgresStoreSuite) TestExecutePersistsCompletion() {
	a := s.newApplication()
	a.Status = volunteer.StatusAssigned
	a.AssignedTask = "Sapling Care"
	s.Require().NoError(s.store.Create(s.ctx, a))

	now := time.Date(2026, 9, 2, 17, 30, 0, 0, time.UTC)
	updated, err := s.store.Execute(s.ctx, a.ID,
		func(*volunteer.Application) error { return nil },
		func(app *volunteer.Application) { app.ApplyCompletion(now, 6.5) })
	s.Require().NoError(err)
	s.Equal(volunteer.StatusCompleted, updated.Status)
	s.Equal(6.5, updated.ActivityHours)

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(volunteer.StatusCompleted, found.Status)
	s.Equal(6.5, found.ActivityHours)
	s.Equal(id.ApprovalPending, found.Approval.Status)
	s.Require().NotNil(found.CompletedAt)
	s.True(now.Equal(*found.CompletedAt))
}

// TestExecuteRowLockSerialisesTransitions drives concurrent settlement
// attempts through the row lock; exactly one may leave the active state.
func (s *PostgresStoreSuite) TestExecuteRowLockSerialisesTransitions() {
	a := s.newApplication()
	s.Require().NoError(s.store.Create(s.ctx, a))

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, a.ID,
				func(app *volunteer.Application) error {
					if !app.Status.Active() {
						return sentinel.ErrConflict
					}
					return nil
				},
				func(app *volunteer.Application) { app.ApplyWithdrawal() })
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, sentinel.ErrConflict)
		}
	}
	s.Equal(1, succeeded)
}

func (s *PostgresStoreSuite) TestActiveLookupsIgnoreSettledRows() {
	a := s.newApplication()
	s.Require().NoError(s.store.Create(s.ctx, a))

	active, err := s.store.FindActiveByApplicantAndOpportunity(s.ctx, a.ApplicantID, a.OpportunityID)
	s.Require().NoError(err)
	s.Equal(a.ID, active.ID)

	count, err := s.store.CountActiveByOpportunity(s.ctx, a.OpportunityID)
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.store.Execute(s.ctx, a.ID,
		func(*volunteer.Application) error { return nil },
		func(app *volunteer.Application) { app.ApplyWithdrawal() })
	s.Require().NoError(err)

	_, err = s.store.FindActiveByApplicantAndOpportunity(s.ctx, a.ApplicantID, a.OpportunityID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	count, err = s.store.CountActiveByOpportunity(s.ctx, a.OpportunityID)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *PostgresStoreSuite) TestListPendingApprovalOldestFirst() {
	ngo := id.NGOID(uuid.New())
	var want []id.ApplicationID
	for hour := 11; hour >= 9; hour-- {
		a := s.newApplication()
		a.NGOID = ngo
		a.CreatedAt = time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
		a.Status = volunteer.StatusCompleted
		a.Approval.Request(a.CreatedAt)
		s.Require().NoError(s.store.Create(s.ctx, a))
		want = append([]id.ApplicationID{a.ID}, want...)
	}

	pending, err := s.store.ListPendingApproval(s.ctx, ngo)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	for i, a := range pending {
		s.Equal(want[i], a.ID)
	}
}
