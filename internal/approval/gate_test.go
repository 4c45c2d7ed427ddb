package approval_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/certificate"
	certstore "ngoconnect/internal/certificate/store"
	"ngoconnect/internal/sequence"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/audit/publisher"
	auditmemory "ngoconnect/pkg/platform/audit/store/memory"
	"ngoconnect/pkg/requestcontext"
)

// fakeRecord stands in for a donation or volunteer application awaiting
// review.
type fakeRecord struct {
	state id.ApprovalState
	spec  certificate.Spec
}

func (r *fakeRecord) ApprovalState() *id.ApprovalState  { return &r.state }
func (r *fakeRecord) CertificateSpec() certificate.Spec { return r.spec }

// executorFor mimics a store's atomic validate-then-mutate round trip.
func executorFor(record *fakeRecord, mu *sync.Mutex) approval.Executor {
	return func(_ context.Context, validate func(approval.Approvable) error, mutate func(approval.Approvable)) (approval.Approvable, error) {
		mu.Lock()
		defer mu.Unlock()
		if err := validate(record); err != nil {
			return nil, err
		}
		mutate(record)
		return record, nil
	}
}

type GateSuite struct {
	suite.Suite
	ctx     context.Context
	gate    *approval.Gate
	events  *auditmemory.InMemoryStore
	ngo     id.NGOID
	record  *fakeRecord
	mu      sync.Mutex
	execute approval.Executor
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.events = auditmemory.NewInMemoryStore()
	issuer := certificate.NewIssuer(certstore.NewInMemory(), sequence.NewInMemory(), logger)
	s.gate = approval.NewGate(issuer, publisher.NewPublisher(s.events), logger)

	s.ngo = id.NGOID(uuid.New())
	s.record = &fakeRecord{
		spec: certificate.Spec{
			Entity:        certificate.DonationRef(id.DonationID(uuid.New())),
			BeneficiaryID: id.UserID(uuid.New()),
			NGOID:         s.ngo,
			Title:         "Certificate of Donation",
			Metadata:      certificate.Metadata{RecipientName: "Asha Rao"},
		},
	}
	s.record.state = id.NewApprovalState()
	s.record.state.Request(time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC))
	s.execute = executorFor(s.record, &s.mu)
}

func (s *GateSuite) TestApprovePendingIssuesCertificate() {
	outcome, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove,
		Reviewer: s.ngo,
	})

	s.Require().NoError(err)
	s.Require().NotNil(outcome.Certificate)
	s.Equal(certificate.KindDonation, outcome.Certificate.Type)
	s.Equal(id.ApprovalApproved, s.record.state.Status)
	s.Require().NotNil(s.record.state.ReviewedAt)
	s.Equal(s.ngo, s.record.state.ReviewedBy)

	events, err := s.events.ListByUser(s.ctx, s.record.spec.BeneficiaryID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCertificateApproved), events[0].Action)
	s.Equal(string(audit.EventCertificateIssued), events[1].Action)
}

func (s *GateSuite) TestApproveAgainReturnsSameCertificate() {
	first, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().NoError(err)

	second, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})

	s.Require().NoError(err)
	s.Equal(first.Certificate.ID, second.Certificate.ID)
	s.Equal(first.Certificate.Number, second.Certificate.Number)

	events, err := s.events.ListByUser(s.ctx, s.record.spec.BeneficiaryID)
	s.Require().NoError(err)
	s.Len(events, 2, "idempotent approval must not double-audit")
}

func (s *GateSuite) TestRejectPendingIsTerminal() {
	outcome, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionReject,
		Note:     "receipt details did not match our records",
		Reviewer: s.ngo,
	})

	s.Require().NoError(err)
	s.Nil(outcome.Certificate)
	s.Equal(id.ApprovalRejected, s.record.state.Status)
	s.Equal("receipt details did not match our records", s.record.state.Note)

	_, err = s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
}

func (s *GateSuite) TestRejectApprovedFails() {
	_, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().NoError(err)

	_, err = s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionReject, Reviewer: s.ngo,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
}

func (s *GateSuite) TestDecideNotRequestedFails() {
	s.record.state = id.NewApprovalState()

	_, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
}

func (s *GateSuite) TestOtherNGOCannotDecide() {
	_, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
		Decision: id.DecisionApprove,
		Reviewer: id.NGOID(uuid.New()),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(id.ApprovalPending, s.record.state.Status)
}

func (s *GateSuite) TestConcurrentDecisionsSettleOnce() {
	const workers = 16
	var wg sync.WaitGroup
	certs := make([]*certificate.Certificate, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := id.DecisionApprove
			if i%2 == 1 {
				decision = id.DecisionReject
			}
			outcome, err := s.gate.Decide(s.ctx, s.execute, approval.Request{
				Decision: decision, Reviewer: s.ngo,
			})
			if err != nil {
				errs[i] = err
				return
			}
			if outcome != nil {
				certs[i] = outcome.Certificate
			}
		}(i)
	}
	wg.Wait()

	var issued *certificate.Certificate
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		if issued == nil {
			issued = cert
			continue
		}
		s.Equal(issued.ID, cert.ID, "all approvals must observe the same certificate")
	}
	for _, err := range errs {
		if err != nil {
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
		}
	}
	s.Contains([]id.ApprovalStatus{id.ApprovalApproved, id.ApprovalRejected}, s.record.state.Status)
}
