package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/certificate"
	"ngoconnect/internal/certificate/handler"
	certstore "ngoconnect/internal/certificate/store"
	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	store  *certstore.InMemory
	router chi.Router

	beneficiary id.UserID
	ngo         id.NGOID
	cert        *certificate.Certificate
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = certstore.NewInMemory()
	s.router = chi.NewRouter()
	handler.New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)

	s.beneficiary = id.UserID(uuid.New())
	s.ngo = id.NGOID(uuid.New())
	s.cert = &certificate.Certificate{
		ID:            id.CertificateID(uuid.New()),
		Entity:        certificate.DonationRef(id.DonationID(uuid.New())),
		BeneficiaryID: s.beneficiary,
		NGOID:         s.ngo,
		Type:          certificate.KindDonation,
		Title:         "Certificate of Donation",
		Number:        "DON-20260901-000001",
		IssuedAt:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Metadata: certificate.Metadata{
			RecipientName:           "Asha Rao",
			NGOName:                 "Green Earth Trust",
			CampaignTitle:           "Clean Water for Dharwad",
			ContributionAmountMinor: 100000,
		},
	}
	s.Require().NoError(s.store.Create(context.Background(), s.cert))
}

func (s *HandlerSuite) TestListMineReturnsOwnCertificates() {
	req := testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/certificates/my"), s.beneficiary)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[handler.ListResponse](s.T(), rr)
	s.Require().Len(resp.Certificates, 1)
	s.Equal("DON-20260901-000001", resp.Certificates[0].Number)
	s.Equal("/certificates/"+s.cert.ID.String()+"/download", resp.Certificates[0].DownloadURL)
}

func (s *HandlerSuite) TestListMineEmptyForStranger() {
	req := testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/certificates/my"), id.UserID(uuid.New()))

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[handler.ListResponse](s.T(), rr)
	s.Empty(resp.Certificates)
}

func (s *HandlerSuite) TestGetReturnsRecordAndRenderedHTML() {
	req := testutil.WithUser(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+s.cert.ID.String()), s.beneficiary)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[handler.GetResponse](s.T(), rr)
	s.Equal("DON-20260901-000001", resp.Certificate.Number)
	s.Contains(resp.HTML, "Asha Rao")
	s.Contains(resp.HTML, "DON-20260901-000001")
}

func (s *HandlerSuite) TestGetAllowsIssuingNGO() {
	req := testutil.WithNGO(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+s.cert.ID.String()), s.ngo)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestGetForbiddenForOtherUser() {
	req := testutil.WithUser(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+s.cert.ID.String()), id.UserID(uuid.New()))

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *HandlerSuite) TestGetUnknownCertificate() {
	req := testutil.WithUser(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+uuid.NewString()), s.beneficiary)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestGetMalformedID() {
	req := testutil.WithUser(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/not-a-uuid"), s.beneficiary)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestDownloadSetsAttachmentAndStampsDelivery() {
	req := testutil.WithUser(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+s.cert.ID.String()+"/download"), s.beneficiary)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(`attachment; filename="certificate-DON-20260901-000001.html"`,
		rr.Header().Get("Content-Disposition"))

	stored, err := s.store.FindByID(context.Background(), s.cert.ID)
	s.Require().NoError(err)
	s.NotNil(stored.DeliveredAt)
}

func (s *HandlerSuite) TestSecondDownloadKeepsFirstDeliveryTime() {
	path := "/certificates/" + s.cert.ID.String() + "/download"

	first := testutil.DoRequest(s.router, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, path), s.beneficiary))
	testutil.AssertStatusOK(s.T(), first)
	afterFirst, err := s.store.FindByID(context.Background(), s.cert.ID)
	s.Require().NoError(err)

	second := testutil.DoRequest(s.router, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, path), s.beneficiary))
	testutil.AssertStatusOK(s.T(), second)
	afterSecond, err := s.store.FindByID(context.Background(), s.cert.ID)
	s.Require().NoError(err)

	s.Equal(afterFirst.DeliveredAt, afterSecond.DeliveredAt)
}

func (s *HandlerSuite) TestListUnauthenticated() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certificates/my"))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}
