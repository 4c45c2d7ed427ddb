package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/volunteer"
	"ngoconnect/internal/volunteer/service"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/httputil"
	"ngoconnect/pkg/requestcontext"
)

// Service defines the interface for volunteer operations.
type Service interface {
	Apply(ctx context.Context, in service.ApplyInput) (*volunteer.Application, error)
	Assign(ctx context.Context, applicationID id.ApplicationID, reviewer id.NGOID, task string) (*volunteer.Application, error)
	Withdraw(ctx context.Context, applicationID id.ApplicationID, caller id.UserID) (*volunteer.Application, error)
	Complete(ctx context.Context, applicationID id.ApplicationID, caller id.UserID, hours float64) (*volunteer.Application, error)
	ListMine(ctx context.Context, applicantID id.UserID) ([]*volunteer.Application, error)
	ListPendingApprovals(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error)
	ListNGORequests(ctx context.Context, ngoID id.NGOID) (*service.RequestSummary, []*volunteer.Application, error)
	DecideCertificate(ctx context.Context, applicationID id.ApplicationID, req approval.Request) (*approval.Outcome, error)
}

// Handler wires volunteering endpoints to the volunteer service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a volunteer handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts volunteering endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/volunteering/{opportunityID}/apply", h.HandleApply)
	r.Post("/volunteering/applications/{applicationID}/assign", h.HandleAssign)
	r.Delete("/volunteering/applications/{applicationID}", h.HandleWithdraw)
	r.Post("/volunteering/applications/{applicationID}/complete", h.HandleComplete)
	r.Get("/volunteering/my/applications", h.HandleListMine)
	r.Get("/volunteering/approvals/ngo/pending", h.HandlePendingApprovals)
	r.Get("/volunteering/ngo/requests", h.HandleRequests)
	r.Post("/volunteering/applications/{applicationID}/certificate/decision", h.HandleDecision)
}

// HandleApply handles POST /volunteering/{opportunityID}/apply.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	opportunityID, err := id.ParseOpportunityID(chi.URLParam(r, "opportunityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Apply(ctx, service.ApplyInput{
		ApplicantID:       userID,
		OpportunityID:     opportunityID,
		FullName:          req.FullName,
		Email:             req.Email,
		Phone:             req.Phone,
		PreferredActivity: req.PreferredActivity,
		Availability:      req.Availability,
		Motivation:        req.Motivation,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "volunteer application failed",
			"request_id", requestID,
			"opportunity_id", opportunityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ApplicationResponse{Application: a})
}

// HandleAssign handles POST /volunteering/applications/{applicationID}/assign.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Assign(ctx, applicationID, ngoID, req.Task)
	if err != nil {
		h.logger.WarnContext(ctx, "task assignment failed",
			"request_id", requestID,
			"application_id", applicationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ApplicationResponse{Application: a})
}

// HandleWithdraw handles DELETE /volunteering/applications/{applicationID}.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.Withdraw(ctx, applicationID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ApplicationResponse{Application: a})
}

// HandleComplete handles POST /volunteering/applications/{applicationID}/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Complete(ctx, applicationID, userID, req.Hours)
	if err != nil {
		h.logger.WarnContext(ctx, "volunteer completion failed",
			"request_id", requestID,
			"application_id", applicationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "volunteer activity completed",
		"request_id", requestID,
		"application_id", applicationID,
		"hours", a.ActivityHours,
	)
	httputil.WriteJSON(w, http.StatusOK, ApplicationResponse{Application: a})
}

// HandleListMine handles GET /volunteering/my/applications.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	applications, err := h.service.ListMine(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Applications: applicationsOrEmpty(applications)})
}

// HandlePendingApprovals handles GET /volunteering/approvals/ngo/pending.
func (h *Handler) HandlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	applications, err := h.service.ListPendingApprovals(ctx, ngoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Applications: applicationsOrEmpty(applications)})
}

// HandleRequests handles GET /volunteering/ngo/requests.
func (h *Handler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	summary, applications, err := h.service.ListNGORequests(ctx, ngoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RequestsResponse{
		Summary:      summary,
		Applications: applicationsOrEmpty(applications),
	})
}

// HandleDecision handles POST /volunteering/applications/{applicationID}/certificate/decision.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ngoID, ok := h.requireNGO(w, ctx)
	if !ok {
		return
	}
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.DecideCertificate(ctx, applicationID, approval.Request{
		Decision: req.ParsedDecision(),
		Note:     req.Note,
		Reviewer: ngoID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "volunteer certificate decision failed",
			"request_id", requestID,
			"application_id", applicationID,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := DecisionResponse{}
	if a, ok := outcome.Record.(*volunteer.Application); ok {
		resp.Application = a
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
