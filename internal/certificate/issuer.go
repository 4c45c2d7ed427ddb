package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ngoconnect/internal/sequence"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// Store is the persistence surface the issuer needs. Create must refuse a
// second certificate for the same entity with sentinel.ErrAlreadyExists.
type Store interface {
	Create(ctx context.Context, cert *Certificate) error
	FindByID(ctx context.Context, certificateID id.CertificateID) (*Certificate, error)
	FindByEntity(ctx context.Context, ref EntityRef) (*Certificate, error)
	ListByBeneficiary(ctx context.Context, userID id.UserID) ([]*Certificate, error)
	MarkDelivered(ctx context.Context, certificateID id.CertificateID) error
}

// Issuer mints at most one certificate per donation or volunteer application.
// Callers racing on the same entity all receive the same certificate.
type Issuer struct {
	store     Store
	sequences sequence.Store
	logger    *slog.Logger
}

func NewIssuer(store Store, sequences sequence.Store, logger *slog.Logger) *Issuer {
	return &Issuer{store: store, sequences: sequences, logger: logger}
}

// Issue returns the certificate bound to spec.Entity, creating it if none
// exists yet. Losing a creation race is not an error; the winner's
// certificate is returned instead.
func (i *Issuer) Issue(ctx context.Context, spec Spec) (*Certificate, error) {
	existing, err := i.store.FindByEntity(ctx, spec.Entity)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up certificate")
	}

	number, err := i.nextNumber(ctx, spec.Entity.Kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocate certificate number")
	}

	cert := &Certificate{
		ID:            id.CertificateID(uuid.New()),
		Entity:        spec.Entity,
		BeneficiaryID: spec.BeneficiaryID,
		NGOID:         spec.NGOID,
		Type:          spec.Entity.Kind,
		Title:         spec.Title,
		Number:        number,
		IssuedAt:      requestcontext.Now(ctx),
		Metadata:      spec.Metadata,
	}

	if err := i.store.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			winner, findErr := i.store.FindByEntity(ctx, spec.Entity)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "look up certificate after lost race")
			}
			i.logger.InfoContext(ctx, "certificate issuance lost race, returning existing",
				"entity", spec.Entity.Key(), "certificate_number", winner.Number)
			return winner, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create certificate")
	}

	i.logger.InfoContext(ctx, "certificate issued",
		"entity", spec.Entity.Key(), "certificate_number", cert.Number)
	return cert, nil
}

// nextNumber builds numbers like DON-20260901-000042. The date reflects
// issuance time; the tail is a process-wide sequence, so the combination is
// unique without coordinating per day.
func (i *Issuer) nextNumber(ctx context.Context, kind Kind) (string, error) {
	prefix := "DON"
	seqName := "certificate:donation"
	if kind == KindVolunteer {
		prefix = "VOL"
		seqName = "certificate:volunteer"
	}
	n, err := i.sequences.Next(ctx, seqName)
	if err != nil {
		return "", fmt.Errorf("next %s sequence: %w", strings.ToLower(prefix), err)
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, requestcontext.Now(ctx).Format("20060102"), n), nil
}
