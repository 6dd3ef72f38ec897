package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verity/internal/transport/http/mocks"
	"verity/internal/verification"
	dErrors "verity/pkg/domain-errors"
	audit "verity/pkg/platform/audit"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Justification: the transport layer owns JSON decoding, the error-envelope
// mapping, and nothing else. Tests pin the status codes each domain error
// code produces and that request bodies map onto orchestrator arguments.

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	mockAuditor *mocks.MockAuditReader
	router      http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.mockAuditor = mocks.NewMockAuditReader(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(s.mockService, s.mockAuditor, logger)
	s.router = NewRouter(handler, RouterConfig{Logger: logger})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	s.T().Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestInitiate() {
	s.Run("created with reference id", func() {
		s.mockService.EXPECT().
			Initiate(gomock.Any(), "NATIONAL_ID_12", "234567890124",
				verification.Consent{IdentityVerification: true, ContactUse: true},
				verification.ContactInput{Phone: "9876543210"}).
			Return("ref-1", verification.StatusAwaitingOtp, nil)

		rec := s.do(http.MethodPost, "/ekyc/initiate", `{
			"documentType": "NATIONAL_ID_12",
			"documentNumber": "234567890124",
			"consent": {"identityVerification": true, "contactUse": true},
			"contact": {"phone": "9876543210"}
		}`)

		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), `"referenceId":"ref-1"`)
		s.Contains(rec.Body.String(), `"status":"AWAITING_OTP"`)
	})

	s.Run("validation failure maps to 400", func() {
		s.mockService.EXPECT().
			Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", verification.Status(""), dErrors.New(dErrors.CodeValidation, "BAD_CHECKSUM"))

		rec := s.do(http.MethodPost, "/ekyc/initiate", `{"documentType":"NATIONAL_ID_12","documentNumber":"111111111111","consent":{"identityVerification":true}}`)

		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_failed")
	})

	s.Run("malformed body maps to 400 without a service call", func() {
		rec := s.do(http.MethodPost, "/ekyc/initiate", `{not json`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestVerifyOtp() {
	s.Run("verified", func() {
		s.mockService.EXPECT().
			SubmitOtp(gomock.Any(), "ref-1", "123456").
			Return(verification.StatusVerified, nil)

		rec := s.do(http.MethodPost, "/ekyc/verify-otp", `{"referenceId":"ref-1","otp":"123456"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"status":"VERIFIED"`)
	})

	s.Run("incorrect otp maps to 422", func() {
		s.mockService.EXPECT().
			SubmitOtp(gomock.Any(), "ref-1", "000000").
			Return(verification.StatusAwaitingOtp, dErrors.New(dErrors.CodeInvalidOtp, "incorrect otp"))

		rec := s.do(http.MethodPost, "/ekyc/verify-otp", `{"referenceId":"ref-1","otp":"000000"}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("expired otp maps to 410", func() {
		s.mockService.EXPECT().
			SubmitOtp(gomock.Any(), "ref-1", "123456").
			Return(verification.StatusExpired, dErrors.New(dErrors.CodeOtpExpired, "otp challenge expired"))

		rec := s.do(http.MethodPost, "/ekyc/verify-otp", `{"referenceId":"ref-1","otp":"123456"}`)
		s.Equal(http.StatusGone, rec.Code)
	})

	s.Run("invalid state maps to 409", func() {
		s.mockService.EXPECT().
			SubmitOtp(gomock.Any(), "ref-1", "123456").
			Return(verification.StatusVerified, dErrors.New(dErrors.CodeInvalidState, "already verified"))

		rec := s.do(http.MethodPost, "/ekyc/verify-otp", `{"referenceId":"ref-1","otp":"123456"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("missing fields map to 400 without a service call", func() {
		rec := s.do(http.MethodPost, "/ekyc/verify-otp", `{"referenceId":"ref-1"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestResendOtp() {
	s.Run("resent", func() {
		s.mockService.EXPECT().
			Resend(gomock.Any(), "ref-1", "234567890124").
			Return(verification.StatusAwaitingOtp, nil)

		rec := s.do(http.MethodPost, "/ekyc/resend-otp", `{"referenceId":"ref-1","documentNumber":"234567890124"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"status":"AWAITING_OTP"`)
	})

	s.Run("resend limit maps to 409", func() {
		s.mockService.EXPECT().
			Resend(gomock.Any(), "ref-1", "234567890124").
			Return(verification.StatusAwaitingOtp, dErrors.New(dErrors.CodeInvalidState, "otp resend limit reached"))

		rec := s.do(http.MethodPost, "/ekyc/resend-otp", `{"referenceId":"ref-1","documentNumber":"234567890124"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *HandlerSuite) TestStatus() {
	s.Run("found", func() {
		s.mockService.EXPECT().
			GetStatus(gomock.Any(), "ref-1").
			Return(verification.StatusFailed, nil)

		rec := s.do(http.MethodGet, "/ekyc/ref-1/status", "")

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"status":"FAILED"`)
	})

	s.Run("unknown reference maps to 404", func() {
		s.mockService.EXPECT().
			GetStatus(gomock.Any(), "nope").
			Return(verification.Status(""), dErrors.New(dErrors.CodeNotFound, "unknown reference id"))

		rec := s.do(http.MethodGet, "/ekyc/nope/status", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestAuditTrail() {
	s.Run("lists entries oldest first", func() {
		ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		s.mockAuditor.EXPECT().
			ListByReference(gomock.Any(), "ref-1").
			Return([]audit.Entry{
				{Operation: audit.OpEkycInitiated, Outcome: audit.OutcomeSuccess, Timestamp: ts},
				{Operation: audit.OpOtpVerified, Outcome: audit.OutcomeSuccess, Timestamp: ts.Add(time.Minute)},
			}, nil)

		rec := s.do(http.MethodGet, "/ekyc/ref-1/audit", "")

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), string(audit.OpEkycInitiated))
		s.Contains(rec.Body.String(), string(audit.OpOtpVerified))
	})
}

func (s *HandlerSuite) TestHealthz() {
	rec := s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"status":"ok"`)
}
