package handler

import (
	"time"

	"ngoconnect/internal/certificate"
)

// CertificateResponse is the JSON shape of a certificate in list and fetch
// responses.
type CertificateResponse struct {
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	Title       string               `json:"title"`
	Number      string               `json:"number"`
	IssuedAt    time.Time            `json:"issued_at"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
	Metadata    certificate.Metadata `json:"metadata"`
	DownloadURL string               `json:"download_url"`
}

// ListResponse is the HTTP response for GET /certificates/my.
type ListResponse struct {
	Certificates []CertificateResponse `json:"certificates"`
}

// GetResponse is the HTTP response for GET /certificates/{certificateID}.
// HTML is regenerated from metadata, never stored.
type GetResponse struct {
	Certificate CertificateResponse `json:"certificate"`
	HTML        string              `json:"html"`
}

// FromCertificate converts a domain certificate to an HTTP response.
func FromCertificate(cert *certificate.Certificate) CertificateResponse {
	return CertificateResponse{
		ID:          cert.ID.String(),
		Type:        string(cert.Type),
		Title:       cert.Title,
		Number:      cert.Number,
		IssuedAt:    cert.IssuedAt,
		DeliveredAt: cert.DeliveredAt,
		Metadata:    cert.Metadata,
		DownloadURL: "/certificates/" + cert.ID.String() + "/download",
	}
}

// FromCertificates converts a list of certificates, never returning nil so the
// JSON field encodes as an empty array.
func FromCertificates(certs []*certificate.Certificate) []CertificateResponse {
	out := make([]CertificateResponse, 0, len(certs))
	for _, cert := range certs {
		out = append(out, FromCertificate(cert))
	}
	return out
}
