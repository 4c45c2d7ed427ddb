package handler

import (
	"ngoconnect/internal/volunteer"
	"ngoconnect/internal/volunteer/service"
)

// ApplicationResponse is the HTTP response for the single-application
// endpoints (apply, assign, withdraw, complete).
type ApplicationResponse struct {
	Application *volunteer.Application `json:"application"`
}

// ListResponse is the HTTP response for applicant and NGO listing endpoints.
type ListResponse struct {
	Applications []*volunteer.Application `json:"applications"`
}

// RequestsResponse is the HTTP response for GET /volunteering/ngo/requests.
type RequestsResponse struct {
	Summary      *service.RequestSummary  `json:"summary"`
	Applications []*volunteer.Application `json:"applications"`
}

// DecisionResponse is the HTTP response for the certificate decision endpoint.
type DecisionResponse struct {
	Application       *volunteer.Application `json:"application"`
	CertificateID     string                 `json:"certificate_id,omitempty"`
	CertificateNumber string                 `json:"certificate_number,omitempty"`
}

func applicationsOrEmpty(applications []*volunteer.Application) []*volunteer.Application {
	if applications == nil {
		return []*volunteer.Application{}
	}
	return applications
}
