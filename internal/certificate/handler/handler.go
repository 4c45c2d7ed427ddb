package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/httputil"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// Store is the certificate lookup surface the handler needs.
type Store interface {
	FindByID(ctx context.Context, certificateID id.CertificateID) (*certificate.Certificate, error)
	ListByBeneficiary(ctx context.Context, userID id.UserID) ([]*certificate.Certificate, error)
	MarkDelivered(ctx context.Context, certificateID id.CertificateID) error
}

// Handler serves certificate listing, viewing and download endpoints.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts certificate endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/certificates/my", h.HandleListMine)
	r.Get("/certificates/{certificateID}", h.HandleGet)
	r.Get("/certificates/{certificateID}/download", h.HandleDownload)
}

// HandleListMine handles GET /certificates requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	certs, err := h.store.ListByBeneficiary(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list certificates failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list certificates"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Certificates: FromCertificates(certs)})
}

// HandleGet handles GET /certificates/{certificateID} requests. The response
// carries both the certificate record and its rendered HTML, regenerated from
// metadata on every read.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cert, ok := h.authorizedCertificate(w, r)
	if !ok {
		return
	}

	var rendered bytes.Buffer
	if err := certificate.Render(&rendered, cert); err != nil {
		h.logger.ErrorContext(ctx, "render certificate failed",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_number", cert.Number,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "render certificate"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, GetResponse{
		Certificate: FromCertificate(cert),
		HTML:        rendered.String(),
	})
}

// HandleDownload handles GET /certificates/{certificateID}/download requests.
// The first successful download stamps DeliveredAt.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cert, ok := h.authorizedCertificate(w, r)
	if !ok {
		return
	}

	if cert.DeliveredAt == nil {
		if err := h.store.MarkDelivered(ctx, cert.ID); err != nil {
			h.logger.WarnContext(ctx, "mark certificate delivered failed",
				"request_id", requestcontext.RequestID(ctx),
				"certificate_number", cert.Number,
				"error", err,
			)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cert.Slug()+`"`)
	if err := certificate.Render(w, cert); err != nil {
		h.logger.ErrorContext(ctx, "render certificate failed",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_number", cert.Number,
			"error", err,
		)
	}
}

// authorizedCertificate loads the requested certificate and checks that the
// caller is either its beneficiary or the issuing NGO. On failure it writes
// the error response and returns false.
func (h *Handler) authorizedCertificate(w http.ResponseWriter, r *http.Request) (*certificate.Certificate, bool) {
	ctx := r.Context()

	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}

	cert, err := h.store.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate not found"))
			return nil, false
		}
		h.logger.ErrorContext(ctx, "load certificate failed",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_id", certID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load certificate"))
		return nil, false
	}

	userID := requestcontext.UserID(ctx)
	ngoID := requestcontext.NGOID(ctx)
	if cert.BeneficiaryID != userID && cert.NGOID != ngoID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "certificate belongs to another account"))
		return nil, false
	}
	return cert, true
}
