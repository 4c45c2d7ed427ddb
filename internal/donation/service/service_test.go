package service_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/campaign"
	campaignstore "ngoconnect/internal/campaign/store"
	"ngoconnect/internal/certificate"
	certstore "ngoconnect/internal/certificate/store"
	"ngoconnect/internal/donation"
	"ngoconnect/internal/donation/service"
	donationstore "ngoconnect/internal/donation/store"
	"ngoconnect/internal/gateway"
	"ngoconnect/internal/sequence"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/audit/publisher"
	auditmemory "ngoconnect/pkg/platform/audit/store/memory"
	"ngoconnect/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	svc       *service.Service
	donations *donationstore.InMemory
	campaigns *campaignstore.InMemory
	certs     *certstore.InMemory
	gw        *gateway.Mock
	events    *auditmemory.InMemoryStore

	ngo      id.NGOID
	donor    id.UserID
	campaign *campaign.Campaign
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.donations = donationstore.NewInMemory()
	s.campaigns = campaignstore.NewInMemory()
	s.certs = certstore.NewInMemory()
	s.gw = gateway.NewMock()
	s.events = auditmemory.NewInMemoryStore()

	sequences := sequence.NewInMemory()
	issuer := certificate.NewIssuer(s.certs, sequences, logger)
	auditor := publisher.NewPublisher(s.events)
	gate := approval.NewGate(issuer, auditor, logger)

	s.svc = service.New(s.donations, s.campaigns, s.gw, sequences, gate, auditor, nil, logger, "INR")

	s.ngo = id.NGOID(uuid.New())
	s.donor = id.UserID(uuid.New())
	s.campaign = &campaign.Campaign{
		ID:              id.CampaignID(uuid.New()),
		NGOID:           s.ngo,
		NGOName:         "Green Earth Trust",
		Title:           "Clean Water for Dharwad",
		GoalAmountMinor: 10_000_00,
		CreatedAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.campaigns.SaveCampaign(s.ctx, s.campaign))
}

func (s *ServiceSuite) initiateInput() service.InitiateInput {
	return service.InitiateInput{
		DonorID:     s.donor,
		CampaignID:  s.campaign.ID,
		AmountMinor: 500_00,
		Method:      donation.MethodUPI,
		Details:     donation.PaymentDetails{UPIID: "asha@upi"},
		DonorName:   "Asha Rao",
		DonorEmail:  "asha@example.org",
	}
}

func (s *ServiceSuite) initiate() *service.InitiateResult {
	result, err := s.svc.Initiate(s.ctx, s.initiateInput())
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) proofFor(result *service.InitiateResult) gateway.Proof {
	paymentID := "pay_" + uuid.NewString()[:8]
	return gateway.Proof{
		Provider:  "mock",
		OrderID:   result.Order.OrderID,
		PaymentID: paymentID,
		Signature: s.gw.SignProof(result.Order.OrderID, paymentID),
	}
}

func (s *ServiceSuite) TestInitiateCreatesOrderAndDonation() {
	result := s.initiate()

	s.Equal(donation.StatusInitiated, result.Donation.Status)
	s.Equal(result.Order.OrderID, result.Donation.GatewayOrderID)
	s.Equal(int64(500_00), result.Order.AmountMinor)
	s.Equal("Clean Water for Dharwad", result.Donation.CampaignTitle)
	s.Equal(id.ApprovalNotRequested, result.Donation.Approval.Status)
	s.Empty(result.Donation.ReceiptNumber)

	c, err := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Zero(c.CurrentAmountMinor, "initiate must not touch campaign totals")
}

func (s *ServiceSuite) TestInitiateValidation() {
	cases := []struct {
		name   string
		mutate func(*service.InitiateInput)
	}{
		{"zero amount", func(in *service.InitiateInput) { in.AmountMinor = 0 }},
		{"negative amount", func(in *service.InitiateInput) { in.AmountMinor = -100 }},
		{"missing donor name", func(in *service.InitiateInput) { in.DonorName = "  " }},
		{"bad upi id", func(in *service.InitiateInput) { in.Details.UPIID = "not-a-upi-id" }},
		{"card without number", func(in *service.InitiateInput) {
			in.Method = donation.MethodCard
			in.Details = donation.PaymentDetails{CardExpiry: "09/28", CardCVV: "123"}
		}},
		{"card with bad expiry", func(in *service.InitiateInput) {
			in.Method = donation.MethodCard
			in.Details = donation.PaymentDetails{CardNumber: "4111111111111111", CardExpiry: "13/28", CardCVV: "123"}
		}},
		{"netbanking without bank", func(in *service.InitiateInput) {
			in.Method = donation.MethodNetBanking
			in.Details = donation.PaymentDetails{}
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			in := s.initiateInput()
			tc.mutate(&in)
			_, err := s.svc.Initiate(s.ctx, in)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "expected validation error, got %v", err)
		})
	}
}

func (s *ServiceSuite) TestInitiateUnknownCampaign() {
	in := s.initiateInput()
	in.CampaignID = id.CampaignID(uuid.New())

	_, err := s.svc.Initiate(s.ctx, in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestInitiateFullyFundedCampaign() {
	s.Require().NoError(s.campaigns.IncrementRaised(s.ctx, s.campaign.ID, s.campaign.GoalAmountMinor))

	_, err := s.svc.Initiate(s.ctx, s.initiateInput())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCampaignClosed))
}

func (s *ServiceSuite) TestConfirmCompletesDonation() {
	result := s.initiate()

	confirmed, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, s.proofFor(result))

	s.Require().NoError(err)
	s.Equal(donation.StatusCompleted, confirmed.Donation.Status)
	s.Equal("RCPT-00000001", confirmed.Donation.ReceiptNumber)
	s.Equal(id.ApprovalPending, confirmed.ApprovalStatus)
	s.Require().NotNil(confirmed.Receipt)
	s.Equal("RCPT-00000001", confirmed.Receipt.Number)

	c, err := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Equal(int64(500_00), c.CurrentAmountMinor)

	events, err := s.events.ListByUser(s.ctx, s.donor)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventDonationInitiated))
	s.Contains(actions, string(audit.EventDonationCompleted))
}

func (s *ServiceSuite) TestConfirmIsIdempotent() {
	result := s.initiate()
	proof := s.proofFor(result)

	first, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
	s.Require().NoError(err)
	second, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
	s.Require().NoError(err)

	s.Equal(first.Donation.ReceiptNumber, second.Donation.ReceiptNumber)
	s.Equal(first.Receipt.Number, second.Receipt.Number)

	c, err := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Equal(int64(500_00), c.CurrentAmountMinor, "replayed confirm must not double-increment")
}

func (s *ServiceSuite) TestConcurrentConfirmsIncrementOnce() {
	result := s.initiate()
	proof := s.proofFor(result)

	const workers = 24
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
			s.NoError(err)
		}()
	}
	wg.Wait()

	c, err := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Equal(int64(500_00), c.CurrentAmountMinor, "exactly one confirm may increment the total")
}

func (s *ServiceSuite) TestConfirmRejectsTamperedSignature() {
	result := s.initiate()
	proof := s.proofFor(result)
	proof.Signature = "deadbeef"

	_, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaymentVerification))

	d, findErr := s.donations.FindByID(s.ctx, result.Donation.ID)
	s.Require().NoError(findErr)
	s.Equal(donation.StatusFailed, d.Status)

	c, err2 := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err2)
	s.Zero(c.CurrentAmountMinor, "failed confirm must leave totals untouched")
}

func (s *ServiceSuite) TestConfirmAfterFailureIsFinal() {
	result := s.initiate()
	bad := s.proofFor(result)
	bad.Signature = "deadbeef"
	_, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, bad)
	s.Require().Error(err)

	_, err = s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, s.proofFor(result))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyFinalized))
}

func (s *ServiceSuite) TestConfirmRejectsForeignOrder() {
	result := s.initiate()
	proof := s.proofFor(result)
	proof.OrderID = "mock_order_999999"
	proof.Signature = s.gw.SignProof(proof.OrderID, proof.PaymentID)

	_, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaymentVerification))
}

func (s *ServiceSuite) TestConfirmRejectsAmountMismatch() {
	result := s.initiate()
	proof := s.proofFor(result)
	proof.AmountMinor = 100_00

	_, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, proof)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaymentVerification))
}

func (s *ServiceSuite) TestConfirmByStrangerForbidden() {
	result := s.initiate()

	_, err := s.svc.Confirm(s.ctx, result.Donation.ID, id.UserID(uuid.New()), s.proofFor(result))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestGetReceipt() {
	result := s.initiate()
	_, err := s.svc.GetReceipt(s.ctx, result.Donation.ID, s.donor)
	s.Require().Error(err, "receipt before completion must fail")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, s.proofFor(result))
	s.Require().NoError(err)

	receipt, err := s.svc.GetReceipt(s.ctx, result.Donation.ID, s.donor)
	s.Require().NoError(err)
	s.Equal("RCPT-00000001", receipt.Number)

	rendered := receipt.Render()
	s.Contains(rendered, "Receipt RCPT-00000001")
	s.Contains(rendered, "Donor: Asha Rao")
	s.Contains(rendered, "Amount: INR 500.00")
	for _, line := range strings.Split(strings.TrimSpace(rendered), "\n") {
		s.NotEmpty(line)
	}

	_, err = s.svc.GetReceipt(s.ctx, result.Donation.ID, id.UserID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) completedDonation() *donation.Donation {
	result := s.initiate()
	confirmed, err := s.svc.Confirm(s.ctx, result.Donation.ID, s.donor, s.proofFor(result))
	s.Require().NoError(err)
	return confirmed.Donation
}

func (s *ServiceSuite) TestDecideCertificateApprove() {
	d := s.completedDonation()

	outcome, err := s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})

	s.Require().NoError(err)
	s.Require().NotNil(outcome.Certificate)
	s.Equal(certificate.KindDonation, outcome.Certificate.Type)
	s.True(strings.HasPrefix(outcome.Certificate.Number, "DON-"))
	s.Equal(int64(500_00), outcome.Certificate.Metadata.ContributionAmountMinor)

	stored, err := s.donations.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(id.ApprovalApproved, stored.Approval.Status)
}

func (s *ServiceSuite) TestDecideCertificateApproveTwiceMintsOne() {
	d := s.completedDonation()

	first, err := s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().NoError(err)
	second, err := s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().NoError(err)

	s.Equal(first.Certificate.ID, second.Certificate.ID)

	certs, err := s.certs.ListByBeneficiary(s.ctx, s.donor)
	s.Require().NoError(err)
	s.Len(certs, 1)
}

func (s *ServiceSuite) TestDecideCertificateRejectKeepsNote() {
	d := s.completedDonation()

	outcome, err := s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionReject,
		Note:     "donation could not be matched to our bank statement",
		Reviewer: s.ngo,
	})

	s.Require().NoError(err)
	s.Nil(outcome.Certificate)

	stored, err := s.donations.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(id.ApprovalRejected, stored.Approval.Status)
	s.Equal("donation could not be matched to our bank statement", stored.Approval.Note)

	_, err = s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
}

func (s *ServiceSuite) TestDecideCertificateOnInitiatedDonation() {
	result := s.initiate()

	_, err := s.svc.DecideCertificate(s.ctx, result.Donation.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: s.ngo,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidApprovalState))
}

func (s *ServiceSuite) TestDecideCertificateWrongNGO() {
	d := s.completedDonation()

	_, err := s.svc.DecideCertificate(s.ctx, d.ID, approval.Request{
		Decision: id.DecisionApprove, Reviewer: id.NGOID(uuid.New()),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestListNGOTransactionsSummary() {
	s.completedDonation()
	s.initiate()
	bad := s.initiate()
	proof := s.proofFor(bad)
	proof.Signature = "deadbeef"
	_, err := s.svc.Confirm(s.ctx, bad.Donation.ID, s.donor, proof)
	s.Require().Error(err)

	summary, donations, err := s.svc.ListNGOTransactions(s.ctx, s.ngo)

	s.Require().NoError(err)
	s.Len(donations, 3)
	s.Equal(3, summary.Total)
	s.Equal(1, summary.Completed)
	s.Equal(1, summary.Initiated)
	s.Equal(1, summary.Failed)
	s.Equal(int64(500_00), summary.CompletedAmountMinor)
	s.Equal(1, summary.PendingCertificates)
}

func (s *ServiceSuite) TestListPendingApprovalsScopedToNGO() {
	s.completedDonation()

	pending, err := s.svc.ListPendingApprovals(s.ctx, s.ngo)
	s.Require().NoError(err)
	s.Len(pending, 1)

	other, err := s.svc.ListPendingApprovals(s.ctx, id.NGOID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *ServiceSuite) TestExpireStaleSweepsOnlyOldInitiated() {
	old := s.initiate()
	s.completedDonation()

	later := requestcontext.WithTime(context.Background(),
		time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC))
	fresh, err := s.svc.Initiate(later, s.initiateInput())
	s.Require().NoError(err)

	swept, err := s.svc.ExpireStale(later, 24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, swept)

	d, err := s.donations.FindByID(s.ctx, old.Donation.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusFailed, d.Status)

	f, err := s.donations.FindByID(s.ctx, fresh.Donation.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusInitiated, f.Status)
}

func (s *ServiceSuite) TestCompletedSumMatchesCampaignTotal() {
	const rounds = 5
	var expected int64
	for i := 0; i < rounds; i++ {
		d := s.completedDonation()
		expected += d.AmountMinor
	}

	c, err := s.campaigns.FindCampaign(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Equal(expected, c.CurrentAmountMinor)
}
