package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/donation"
	"ngoconnect/internal/donation/service"
	"ngoconnect/internal/gateway"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/httputil"
	"ngoconnect/pkg/requestcontext"
)

// Service defines the interface for donation operations.
type Service interface {
	Initiate(ctx context.Context, in service.InitiateInput) (*service.InitiateResult, error)
	Confirm(ctx context.Context, donationID id.DonationID, caller id.UserID, proof gateway.Proof) (*service.ConfirmResult, error)
	GetReceipt(ctx context.Context, donationID id.DonationID, caller id.UserID) (*donation.Receipt, error)
	ListMine(ctx context.Context, donorID id.UserID) ([]*donation.Donation, error)
	ListPendingApprovals(ctx context.Context, ngoID id.NGOID) ([]*donation.Donation, error)
	ListNGOTransactions(ctx context.Context, ngoID id.NGOID) (*service.TransactionSummary, []*donation.Donation, error)
	DecideCertificate(ctx context.Context, donationID id.DonationID, req approval.Request) (*approval.Outcome, error)
}

// Handler wires donation endpoints to the donation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts donation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donations/campaign/{campaignID}/initiate", h.HandleInitiate)
	r.Post("/donations/{donationID}/confirm", h.HandleConfirm)
	r.Get("/donations/{donationID}/receipt", h.HandleReceipt)
	r.Get("/donations/my", h.HandleListMine)
	r.Get("/donations/ngo/pending-approvals", h.HandlePendingApprovals)
	r.Get("/donations/ngo/transactions", h.HandleTransactions)
	r.Post("/donations/{donationID}/certificate/decision", h.HandleDecision)
}

// HandleInitiate handles POST /donations/campaign/{campaignID}/initiate.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Initiate(ctx, service.InitiateInput{
		DonorID:     userID,
		CampaignID:  campaignID,
		AmountMinor: req.AmountMinor,
		Method:      req.ParsedMethod(),
		Details:     req.PaymentDetails,
		Message:     req.Message,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "donation initiation failed",
			"request_id", requestID,
			"campaign_id", campaignID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, InitiateResponse{
		Donation:     result.Donation,
		GatewayOrder: result.Order,
	})
}

// HandleConfirm handles POST /donations/{donationID}/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Confirm(ctx, donationID, userID, req.Proof)
	if err != nil {
		h.logger.WarnContext(ctx, "donation confirmation failed",
			"request_id", requestID,
			"donation_id", donationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donation confirmed",
		"request_id", requestID,
		"donation_id", donationID,
		"receipt_number", result.Receipt.Number,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ConfirmResponse{
		Donation:       result.Donation,
		Receipt:        result.Receipt,
		ApprovalStatus: string(result.ApprovalStatus),
	})
}

// HandleReceipt handles GET /donations/{donationID}/receipt.
func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.GetReceipt(ctx, donationID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReceiptResponse{Receipt: receipt, Rendered: receipt.Render()})
}

// HandleListMine handles GET /donations/my.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	donations, err := h.service.ListMine(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Donations: donationsOrEmpty(donations)})
}

// HandlePendingApprovals handles GET /donations/ngo/pending-approvals.
func (h *Handler) HandlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	donations, err := h.service.ListPendingApprovals(ctx, ngoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Donations: donationsOrEmpty(donations)})
}

// HandleTransactions handles GET /donations/ngo/transactions.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	summary, donations, err := h.service.ListNGOTransactions(ctx, ngoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TransactionsResponse{
		Summary:   summary,
		Donations: donationsOrEmpty(donations),
	})
}

// HandleDecision handles POST /donations/{donationID}/certificate/decision.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.DecideCertificate(ctx, donationID, approval.Request{
		Decision: req.ParsedDecision(),
		Note:     req.Note,
		Reviewer: ngoID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "donation certificate decision failed",
			"request_id", requestID,
			"donation_id", donationID,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := DecisionResponse{}
	if d, ok := outcome.Record.(*donation.Donation); ok {
		resp.Donation = d
	}
	if outcome.Certificate != nil {
		resp.CertificateID = outcome.Certificate.ID.String()
		resp.CertificateNumber = outcome.Certificate.Number
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) requireNGO(w http.ResponseWriter, ctx context.Context) (id.NGOID, bool) {
	ngoID := requestcontext.NGOID(ctx)
	if ngoID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "organisation account required"))
		return id.NGOID{}, false
	}
	return ngoID, true
}
