// Package service implements the donation workflow: initiate against an open
// campaign, confirm with a verified gateway proof, receipts, listings, the
// certificate decision, and the stale-donation sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/campaign"
	"ngoconnect/internal/donation"
	"ngoconnect/internal/donation/metrics"
	"ngoconnect/internal/donation/store"
	"ngoconnect/internal/gateway"
	"ngoconnect/internal/sequence"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// CampaignStore is the slice of the campaign boundary the workflow needs.
type CampaignStore interface {
	FindCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
	IncrementRaised(ctx context.Context, campaignID id.CampaignID, amountMinor int64) error
}

type Service struct {
	donations store.Store
	campaigns CampaignStore
	gateway   gateway.Adapter
	sequences sequence.Store
	gate      *approval.Gate
	auditor   audit.Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	currency  string
}

func New(
	donations store.Store,
	campaigns CampaignStore,
	gw gateway.Adapter,
	sequences sequence.Store,
	gate *approval.Gate,
	auditor audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
	currency string,
) *Service {
	return &Service{
		donations: donations,
		campaigns: campaigns,
		gateway:   gw,
		sequences: sequences,
		gate:      gate,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		currency:  currency,
	}
}

// InitiateInput carries a donor's request to start a donation.
type InitiateInput struct {
	DonorID    id.UserID
	CampaignID id.CampaignID

	AmountMinor int64
	Method      donation.PaymentMethod
	Details     donation.PaymentDetails
	Message     string

	DonorName  string
	DonorEmail string
}

// InitiateResult pairs the created donation with the gateway order the donor
// completes checkout against.
type InitiateResult struct {
	Donation *donation.Donation
	Order    *gateway.Order
}

// Initiate validates the request, records the donation in initiated state,
// and opens a gateway order sized in minor units. Campaign totals are not
// touched here.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	if in.AmountMinor <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(in.DonorName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "donor name is required")
	}
	if err := in.Details.ValidateFor(in.Method); err != nil {
		return nil, err
	}

	c, err := s.campaigns.FindCampaign(ctx, in.CampaignID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load campaign")
	}
	if !c.AcceptsFunding() {
		return nil, dErrors.New(dErrors.CodeCampaignClosed, "campaign is not accepting donations")
	}

	now := requestcontext.Now(ctx)
	d := &donation.Donation{
		ID:             id.DonationID(uuid.New()),
		CampaignID:     c.ID,
		DonorID:        in.DonorID,
		NGOID:          c.NGOID,
		AmountMinor:    in.AmountMinor,
		Currency:       s.currency,
		Method:         in.Method,
		Message:        strings.TrimSpace(in.Message),
		DonorName:      strings.TrimSpace(in.DonorName),
		DonorEmail:     strings.TrimSpace(in.DonorEmail),
		CampaignTitle:  c.Title,
		NGOName:        c.NGOName,
		Status:         donation.StatusInitiated,
		IdempotencyKey: uuid.NewString(),
		Approval:       id.NewApprovalState(),
		CreatedAt:      now,
	}
	if err := s.donations.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create donation")
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: d.AmountMinor,
		Currency:    d.Currency,
		Receipt:     d.ID.String(),
		Notes: map[string]string{
			"campaign_id": c.ID.String(),
			"donor_id":    in.DonorID.String(),
		},
	})
	if err != nil {
		if _, failErr := s.donations.Execute(ctx, d.ID,
			func(*donation.Donation) error { return nil },
			func(d *donation.Donation) { d.ApplyFailure("gateway order creation failed") },
		); failErr != nil {
			s.logger.ErrorContext(ctx, "mark donation failed after gateway error",
				"donation_id", d.ID, "error", failErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create payment order")
	}

	d, err = s.donations.Execute(ctx, d.ID,
		func(*donation.Donation) error { return nil },
		func(d *donation.Donation) { d.GatewayOrderID = order.OrderID },
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "attach gateway order")
	}

	s.metrics.IncrementOutcome(string(donation.StatusInitiated), string(d.Method))
	s.audit(ctx, audit.EventDonationInitiated, d, "")
	s.logger.InfoContext(ctx, "donation initiated",
		"request_id", requestcontext.RequestID(ctx),
		"donation_id", d.ID,
		"campaign_id", d.CampaignID,
		"amount_minor", d.AmountMinor,
		"method", d.Method,
	)
	return &InitiateResult{Donation: d, Order: order}, nil
}

// ConfirmResult is what the donor sees after checkout settles.
type ConfirmResult struct {
	Donation       *donation.Donation
	Receipt        *donation.Receipt
	ApprovalStatus id.ApprovalStatus
}

// Confirm settles a donation against the gateway proof. Exactly one of two
// concurrent Confirms for the same donation wins; the loser observes the
// completed row and gets the same result back. A proof that fails
// verification moves the donation to failed and leaves campaign totals
// untouched.
func (s *Service) Confirm(ctx context.Context, donationID id.DonationID, caller id.UserID, proof gateway.Proof) (*ConfirmResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveConfirmLatency(time.Since(start)) }()

	// Fast path for replays, so settled confirms don't burn receipt numbers.
	existing, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load donation")
	}
	if existing.DonorID != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "donation belongs to another donor")
	}
	if existing.Status == donation.StatusCompleted {
		return s.confirmResult(existing)
	}
	if existing.Status == donation.StatusFailed {
		return nil, dErrors.New(dErrors.CodeAlreadyFinalized, "donation already failed; start a new donation to retry")
	}

	// Allocated before the row lock so the mutate closure stays free of
	// network calls. A confirm that loses the race leaves a gap in the
	// receipt sequence, which uniqueness tolerates.
	receiptNumber, err := s.nextReceiptNumber(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocate receipt number")
	}

	now := requestcontext.Now(ctx)
	var verifyReason string
	var replayed bool
	d, err := s.donations.Execute(ctx, donationID,
		func(d *donation.Donation) error {
			verifyReason = ""
			replayed = false
			if d.DonorID != caller {
				return dErrors.New(dErrors.CodeForbidden, "donation belongs to another donor")
			}
			switch d.Status {
			case donation.StatusCompleted:
				replayed = true
				return nil
			case donation.StatusFailed:
				return dErrors.New(dErrors.CodeAlreadyFinalized, "donation already failed; start a new donation to retry")
			}
			if reason, ok := s.verifyProof(ctx, d, proof); !ok {
				verifyReason = reason
			}
			return nil
		},
		func(d *donation.Donation) {
			if d.Status != donation.StatusInitiated {
				return
			}
			if verifyReason != "" {
				d.ApplyFailure(verifyReason)
				return
			}
			d.ApplyCompletion(now, proof.PaymentID, receiptNumber)
		},
	)
	if err != nil {
		return nil, err
	}

	if verifyReason != "" {
		s.metrics.IncrementOutcome(string(donation.StatusFailed), string(d.Method))
		s.audit(ctx, audit.EventDonationFailed, d, verifyReason)
		s.logger.WarnContext(ctx, "donation confirmation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"donation_id", d.ID,
			"reason", verifyReason,
		)
		return nil, dErrors.New(dErrors.CodePaymentVerification, verifyReason)
	}

	if !replayed {
		if err := s.campaigns.IncrementRaised(ctx, d.CampaignID, d.AmountMinor); err != nil {
			// The donation is already completed; surface loudly rather
			// than unwinding a settled payment.
			s.logger.ErrorContext(ctx, "increment campaign total failed",
				"request_id", requestcontext.RequestID(ctx),
				"donation_id", d.ID,
				"campaign_id", d.CampaignID,
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update campaign total")
		}
		s.metrics.IncrementOutcome(string(donation.StatusCompleted), string(d.Method))
		s.metrics.ObserveCompletedAmount(d.AmountMinor)
		s.audit(ctx, audit.EventDonationCompleted, d, "")
		s.logger.InfoContext(ctx, "donation completed",
			"request_id", requestcontext.RequestID(ctx),
			"donation_id", d.ID,
			"receipt_number", d.ReceiptNumber,
			"amount_minor", d.AmountMinor,
		)
	}
	return s.confirmResult(d)
}

// verifyProof checks the proof against the stored donation: the order must be
// the one opened at Initiate, any reported amount must match, and the
// provider signature must verify.
func (s *Service) verifyProof(ctx context.Context, d *donation.Donation, proof gateway.Proof) (string, bool) {
	if proof.OrderID == "" || proof.OrderID != d.GatewayOrderID {
		return "payment proof references a different order", false
	}
	if proof.AmountMinor != 0 && proof.AmountMinor != d.AmountMinor {
		return "reported amount does not match the donation", false
	}
	verification := s.gateway.VerifyPayment(ctx, proof)
	if !verification.Verified {
		reason := verification.Reason
		if reason == "" {
			reason = "payment signature verification failed"
		}
		return reason, false
	}
	return "", true
}

func (s *Service) confirmResult(d *donation.Donation) (*ConfirmResult, error) {
	receipt, err := donation.ReceiptFrom(d)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Donation: d, Receipt: receipt, ApprovalStatus: d.Approval.Status}, nil
}

// GetReceipt returns the receipt of a completed donation. Read-only.
func (s *Service) GetReceipt(ctx context.Context, donationID id.DonationID, caller id.UserID) (*donation.Receipt, error) {
	d, err := s.findOwned(ctx, donationID, caller)
	if err != nil {
		return nil, err
	}
	return donation.ReceiptFrom(d)
}

// ListMine returns the donor's donation history, newest first.
func (s *Service) ListMine(ctx context.Context, donorID id.UserID) ([]*donation.Donation, error) {
	donations, err := s.donations.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list donations")
	}
	return donations, nil
}

// ListPendingApprovals returns the NGO's queue of donations awaiting a
// certificate decision, oldest first.
func (s *Service) ListPendingApprovals(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error) {
	donations, err := s.donations.ListPendingApproval(ctx, ngoID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending approvals")
	}
	return donations, nil
}

// TransactionSummary aggregates an NGO's donation history by status.
type TransactionSummary struct {
	Total                int   `json:"total"`
	Completed            int   `json:"completed"`
	Initiated            int   `json:"initiated"`
	Failed               int   `json:"failed"`
	CompletedAmountMinor int64 `json:"completed_amount_minor"`
	PendingCertificates  int   `json:"pending_certificates"`
}

// ListNGOTransactions returns the NGO's donations with summary counts.
func (s *Service) ListNGOTransactions(ctx context.Context, ngoID id.NGOID) (*TransactionSummary, []*donation.Donation, error) {
	donations, err := s.donations.ListByNGO(ctx, ngoID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list transactions")
	}

	summary := &TransactionSummary{Total: len(donations)}
	for _, d := range donations {
		switch d.Status {
		case donation.StatusCompleted:
			summary.Completed++
			summary.CompletedAmountMinor += d.AmountMinor
		case donation.StatusInitiated:
			summary.Initiated++
		case donation.StatusFailed:
			summary.Failed++
		}
		if d.Approval.Status == id.ApprovalPending {
			summary.PendingCertificates++
		}
	}
	return summary, donations, nil
}

// DecideCertificate routes the NGO's approve/reject through the approval
// gate, scoped to this donation.
func (s *Service) DecideCertificate(ctx context.Context, donationID id.DonationID, req approval.Request) (*approval.Outcome, error) {
	exec := func(ctx context.Context, validate func(approval.Approvable) error, mutate func(approval.Approvable)) (approval.Approvable, error) {
		d, err := s.donations.Execute(ctx, donationID,
			func(d *donation.Donation) error {
				if d.Status != donation.StatusCompleted {
					return dErrors.New(dErrors.CodeInvalidApprovalState,
						fmt.Sprintf("certificates apply only to completed donations, not %q", d.Status))
				}
				return validate(d)
			},
			func(d *donation.Donation) { mutate(d) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
			}
			return nil, err
		}
		return d, nil
	}
	return s.gate.Decide(ctx, exec, req)
}

// ExpireStale marks initiated donations older than the window as failed.
// Returns how many were swept.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-olderThan)
	stale, err := s.donations.ListStaleInitiated(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list stale donations")
	}

	swept := 0
	for _, donationID := range stale {
		d, err := s.donations.Execute(ctx, donationID,
			func(d *donation.Donation) error {
				if d.Status != donation.StatusInitiated {
					return dErrors.New(dErrors.CodeConflict, "donation no longer initiated")
				}
				return nil
			},
			func(d *donation.Donation) { d.ApplyFailure("checkout abandoned") },
		)
		if err != nil {
			// Lost the race to a concurrent Confirm; skip.
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return swept, err
		}
		swept++
		s.audit(ctx, audit.EventDonationExpired, d, "checkout abandoned")
	}
	if swept > 0 {
		s.metrics.AddExpired(swept)
		s.logger.InfoContext(ctx, "stale donations expired", "count", swept)
	}
	return swept, nil
}

func (s *Service) findOwned(ctx context.Context, donationID id.DonationID, caller id.UserID) (*donation.Donation, error) {
	d, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load donation")
	}
	if d.DonorID != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "donation belongs to another donor")
	}
	return d, nil
}

func (s *Service) nextReceiptNumber(ctx context.Context) (string, error) {
	n, err := s.sequences.Next(ctx, "receipt")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RCPT-%08d", n), nil
}

func (s *Service) audit(ctx context.Context, action audit.AuditEvent, d *donation.Donation, reason string) {
	err := s.auditor.Emit(ctx, audit.Event{
		UserID:      d.DonorID,
		NGOID:       d.NGOID,
		Subject:     "donation/" + d.ID.String(),
		Action:      string(action),
		Reason:      reason,
		AmountMinor: d.AmountMinor,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "emit audit event failed", "action", action, "error", err)
	}
}
