// Package httptransport assembles the HTTP surface: middleware chain,
// authenticated API routes, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certificatehandler "ngoconnect/internal/certificate/handler"
	donationhandler "ngoconnect/internal/donation/handler"
	volunteerhandler "ngoconnect/internal/volunteer/handler"
	"ngoconnect/pkg/platform/middleware/auth"
	"ngoconnect/pkg/platform/middleware/metadata"
	"ngoconnect/pkg/platform/middleware/requestid"
	"ngoconnect/pkg/platform/middleware/requesttime"
)

// Handlers carries the per-module HTTP handlers the router mounts.
type Handlers struct {
	Donations    *donationhandler.Handler
	Volunteering *volunteerhandler.Handler
	Certificates *certificatehandler.Handler
}

// HealthChecker reports readiness of a backing resource.
type HealthChecker func() error

// NewRouter wires middleware and routes. Everything under the API group
// requires a bearer token; health and metrics stay open.
func NewRouter(h Handlers, validator auth.JWTValidator, logger *slog.Logger, health HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				logger.Error("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, logger))
		h.Donations.Register(r)
		h.Volunteering.Register(r)
		h.Certificates.Register(r)
	})

	return r
}
