package store

import (
	"context"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
)

// Store persists certificates. Create must enforce the one-certificate-per-
// entity invariant and return sentinel.ErrAlreadyExists when violated; the
// issuer relies on that as the at-most-once backstop under concurrency.
type Store interface {
	Create(ctx context.Context, cert *certificate.Certificate) error
	FindByID(ctx context.Context, certificateID id.CertificateID) (*certificate.Certificate, error)
	FindByEntity(ctx context.Context, ref certificate.EntityRef) (*certificate.Certificate, error)
	ListByBeneficiary(ctx context.Context, userID id.UserID) ([]*certificate.Certificate, error)
	MarkDelivered(ctx context.Context, certificateID id.CertificateID) error
}
