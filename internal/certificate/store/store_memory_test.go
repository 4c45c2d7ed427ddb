package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/certificate"
	"ngoconnect/internal/certificate/store"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
}

func (s *MemoryStoreSuite) newCert(number string) *certificate.Certificate {
	return &certificate.Certificate{
		ID:            id.CertificateID(uuid.New()),
		Entity:        certificate.DonationRef(id.DonationID(uuid.New())),
		BeneficiaryID: id.UserID(uuid.New()),
		NGOID:         id.NGOID(uuid.New()),
		Type:          certificate.KindDonation,
		Title:         "Certificate of Donation",
		Number:        number,
		IssuedAt:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	cert := s.newCert("DON-20260901-000001")
	s.Require().NoError(s.store.Create(s.ctx, cert))

	byID, err := s.store.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.Number, byID.Number)

	byEntity, err := s.store.FindByEntity(s.ctx, cert.Entity)
	s.Require().NoError(err)
	s.Equal(cert.ID, byEntity.ID)
}

func (s *MemoryStoreSuite) TestCreateRejectsSecondCertificateForEntity() {
	first := s.newCert("DON-20260901-000001")
	s.Require().NoError(s.store.Create(s.ctx, first))

	dup := s.newCert("DON-20260901-000002")
	dup.Entity = first.Entity

	err := s.store.Create(s.ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)
}

func (s *MemoryStoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.FindByID(s.ctx, id.CertificateID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEntity(s.ctx, certificate.DonationRef(id.DonationID(uuid.New())))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestMarkDeliveredStampsRequestTime() {
	cert := s.newCert("DON-20260901-000001")
	s.Require().NoError(s.store.Create(s.ctx, cert))

	deliveredAt := time.Date(2026, 9, 2, 15, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, deliveredAt)
	s.Require().NoError(s.store.MarkDelivered(ctx, cert.ID))

	got, err := s.store.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.DeliveredAt)
	s.Equal(deliveredAt, *got.DeliveredAt)
}

func (s *MemoryStoreSuite) TestMarkDeliveredMissingReturnsNotFound() {
	err := s.store.MarkDelivered(s.ctx, id.CertificateID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestReturnedCertificateIsACopy() {
	cert := s.newCert("DON-20260901-000001")
	s.Require().NoError(s.store.Create(s.ctx, cert))

	got, err := s.store.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	got.Number = "tampered"

	again, err := s.store.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal("DON-20260901-000001", again.Number)
}
