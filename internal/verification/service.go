// Package verification drives an eKYC request from intake through completion
// or failure. The service owns the request state machine, consent
// enforcement, OTP attempt bounds, and the retention sweep; remote document
// checks are delegated to the identity-authority client.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verity/internal/authority"
	"verity/internal/identity"
	"verity/internal/otp"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/masking"
	audit "verity/pkg/platform/audit"
	"verity/pkg/platform/sentinel"
	platformsync "verity/pkg/platform/sync"
)

// Recorder is the audit collaborator. Emission never fails the verification
// decision; degraded audit is surfaced operationally, not to the applicant.
type Recorder interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// Metrics is the optional observability hook. Nil-safe at every call site.
type Metrics interface {
	IncInitiated()
	IncVerified()
	IncFailed(reason string)
	IncOtpRejected()
	IncArchived(n int)
	ObserveAuthorityLatency(seconds float64)
}

// DefaultMaxResends bounds OTP re-dispatches per request.
const DefaultMaxResends = 3

// ContactInput carries optional raw contact fields at intake. They are
// validated, masked, and discarded; only masked forms persist.
type ContactInput struct {
	Phone string
	Email string
}

// Service is the verification orchestrator.
type Service struct {
	store      Store
	authority  authority.Client
	otp        *otp.Manager
	recorder   Recorder
	locks      *platformsync.ShardedMutex
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer
	now        func() time.Time
	maxResends int
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics attaches the metrics hook.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithMaxResends overrides the OTP re-dispatch bound.
func WithMaxResends(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxResends = n
		}
	}
}

// NewService wires the orchestrator with explicit constructor-style
// composition: every collaborator is a visible parameter.
func NewService(store Store, client authority.Client, manager *otp.Manager, recorder Recorder, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		authority:  client,
		otp:        manager,
		recorder:   recorder,
		locks:      platformsync.NewShardedMutex(),
		logger:     logger,
		tracer:     otel.Tracer("verity/verification"),
		now:        time.Now,
		maxResends: DefaultMaxResends,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Initiate validates intake, creates the request, and asks the authority to
// dispatch an OTP. Validation failures happen before any side effect: no
// request is created and no remote call is made on bad input or missing
// consent. Authority transport failures are absorbed into a terminal FAILED
// status (reason AUTHORITY_UNAVAILABLE) and never retried here.
func (s *Service) Initiate(ctx context.Context, documentType string, documentNumber string, consent Consent, contact ContactInput) (string, Status, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Initiate")
	defer span.End()

	dt, err := identity.ParseDocumentType(documentType)
	if err != nil {
		return "", "", err
	}
	if !consent.IdentityVerification {
		return "", "", dErrors.New(dErrors.CodeValidation, "identity verification consent is mandatory")
	}
	if err := identity.Validate(dt, documentNumber); err != nil {
		return "", "", err
	}
	masked, err := maskContact(contact)
	if err != nil {
		return "", "", err
	}

	referenceID := uuid.NewString()
	span.SetAttributes(attribute.String("reference.id", referenceID))

	s.locks.Lock(referenceID)
	defer s.locks.Unlock(referenceID)

	now := s.now()
	req := &Request{
		ReferenceID:          referenceID,
		DocumentType:         dt,
		DocumentNumberMasked: masking.Mask(masking.KindDocumentNumber, documentNumber),
		Consent:              consent,
		Contact:              masked,
		Status:               StatusInitiated,
		CreatedAt:            now,
		LastTransitionAt:     now,
	}
	if err := s.store.Save(ctx, req); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
	}
	if s.metrics != nil {
		s.metrics.IncInitiated()
	}

	result, err := s.initiateWithAuthority(ctx, dt, documentNumber)
	if err != nil {
		s.fail(ctx, req, ReasonAuthorityUnavailable)
		return referenceID, StatusFailed, nil
	}
	if !result.Accepted {
		reason := result.ErrorCode
		if reason == "" {
			reason = ReasonAuthorityRejected
		}
		s.fail(ctx, req, reason)
		return referenceID, StatusFailed, nil
	}

	challenge, err := s.otp.Issue(referenceID)
	if err != nil {
		return referenceID, StatusInitiated, dErrors.Wrap(err, dErrors.CodeInternal, "issue otp challenge")
	}
	req.Challenge = challenge
	s.transition(req, StatusAwaitingOtp)
	if err := s.store.Save(ctx, req); err != nil {
		return referenceID, "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
	}

	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID:   referenceID,
		Operation:     audit.OpEkycInitiated,
		Outcome:       audit.OutcomeSuccess,
		MaskedPayload: fmt.Sprintf("documentType=%s document=%s", dt, req.DocumentNumberMasked),
	})
	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID:   referenceID,
		Operation:     audit.OpOtpDispatched,
		Outcome:       audit.OutcomeSuccess,
		MaskedPayload: fmt.Sprintf("expiresAt=%s attempts=%d", challenge.ExpiresAt.UTC().Format(time.RFC3339), challenge.AttemptsRemaining),
	})
	return referenceID, StatusAwaitingOtp, nil
}

// SubmitOtp checks the submitted code against the active challenge and, on a
// local match, confirms it with the authority. Expiry and the attempt bound
// are enforced here, not delegated: the authority is untrusted and the
// orchestrator must guarantee bounded attempts regardless of its behavior.
func (s *Service) SubmitOtp(ctx context.Context, referenceID, code string) (Status, error) {
	ctx, span := s.tracer.Start(ctx, "verification.SubmitOtp",
		trace.WithAttributes(attribute.String("reference.id", referenceID)))
	defer span.End()

	s.locks.Lock(referenceID)
	defer s.locks.Unlock(referenceID)

	req, err := s.find(ctx, referenceID)
	if err != nil {
		return "", err
	}
	if req.Status != StatusAwaitingOtp {
		return req.Status, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("otp submission not valid in status %s", req.Status))
	}
	challenge := req.Challenge
	if challenge == nil {
		return req.Status, dErrors.New(dErrors.CodeInternal, "awaiting otp without an active challenge")
	}

	if challenge.Expired(s.now()) {
		req.Challenge = nil
		s.transition(req, StatusExpired)
		if err := s.store.Save(ctx, req); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
		}
		s.recorder.Emit(ctx, audit.Entry{
			ReferenceID: referenceID,
			Operation:   audit.OpOtpExpired,
			Outcome:     audit.OutcomeFailure,
		})
		return StatusExpired, dErrors.New(dErrors.CodeOtpExpired, "otp challenge expired")
	}

	challenge.AttemptsRemaining--
	if !s.otp.Check(challenge, code) {
		if s.metrics != nil {
			s.metrics.IncOtpRejected()
		}
		if challenge.Exhausted() {
			req.Challenge = nil
			s.fail(ctx, req, ReasonOtpAttemptsExhausted)
			return StatusFailed, dErrors.New(dErrors.CodeInvalidOtp, "otp attempts exhausted")
		}
		if err := s.store.Save(ctx, req); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
		}
		s.recorder.Emit(ctx, audit.Entry{
			ReferenceID:   referenceID,
			Operation:     audit.OpOtpRejected,
			Outcome:       audit.OutcomeDenied,
			MaskedPayload: fmt.Sprintf("attemptsRemaining=%d", challenge.AttemptsRemaining),
		})
		return StatusAwaitingOtp, dErrors.New(dErrors.CodeInvalidOtp, "incorrect otp")
	}

	result, err := s.verifyWithAuthority(ctx, referenceID, code)
	if err != nil {
		req.Challenge = nil
		s.fail(ctx, req, ReasonAuthorityUnavailable)
		return StatusFailed, nil
	}
	if !result.Verified {
		reason := result.ErrorCode
		if reason == "" {
			reason = ReasonOtpRejected
		}
		req.Challenge = nil
		s.fail(ctx, req, reason)
		return StatusFailed, nil
	}

	req.Challenge = nil
	s.transition(req, StatusVerified)
	if err := s.store.Save(ctx, req); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
	}
	if s.metrics != nil {
		s.metrics.IncVerified()
	}
	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID: referenceID,
		Operation:   audit.OpOtpVerified,
		Outcome:     audit.OutcomeSuccess,
	})
	return StatusVerified, nil
}

// Resend replaces the active challenge and asks the authority to dispatch a
// fresh OTP. The caller re-supplies the document number, which must validate
// and match the stored masked form; the unmasked number is still never stored.
func (s *Service) Resend(ctx context.Context, referenceID, documentNumber string) (Status, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Resend",
		trace.WithAttributes(attribute.String("reference.id", referenceID)))
	defer span.End()

	s.locks.Lock(referenceID)
	defer s.locks.Unlock(referenceID)

	req, err := s.find(ctx, referenceID)
	if err != nil {
		return "", err
	}
	if req.Status != StatusAwaitingOtp {
		return req.Status, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("otp resend not valid in status %s", req.Status))
	}
	if err := identity.Validate(req.DocumentType, documentNumber); err != nil {
		return req.Status, err
	}
	if masking.Mask(masking.KindDocumentNumber, documentNumber) != req.DocumentNumberMasked {
		return req.Status, dErrors.New(dErrors.CodeValidation, "document number does not match this request")
	}
	resends := 0
	if req.Challenge != nil {
		resends = req.Challenge.Resends
	}
	if resends >= s.maxResends {
		return req.Status, dErrors.New(dErrors.CodeInvalidState, "otp resend limit reached")
	}

	result, err := s.initiateWithAuthority(ctx, req.DocumentType, documentNumber)
	if err != nil {
		req.Challenge = nil
		s.fail(ctx, req, ReasonAuthorityUnavailable)
		return StatusFailed, nil
	}
	if !result.Accepted {
		reason := result.ErrorCode
		if reason == "" {
			reason = ReasonAuthorityRejected
		}
		req.Challenge = nil
		s.fail(ctx, req, reason)
		return StatusFailed, nil
	}

	challenge, err := s.otp.Issue(referenceID)
	if err != nil {
		return req.Status, dErrors.Wrap(err, dErrors.CodeInternal, "issue otp challenge")
	}
	challenge.Resends = resends + 1
	req.Challenge = challenge
	s.transition(req, StatusAwaitingOtp)
	if err := s.store.Save(ctx, req); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist verification request")
	}
	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID:   referenceID,
		Operation:     audit.OpOtpResent,
		Outcome:       audit.OutcomeSuccess,
		MaskedPayload: fmt.Sprintf("resends=%d", challenge.Resends),
	})
	return StatusAwaitingOtp, nil
}

// GetStatus is read-only.
func (s *Service) GetStatus(ctx context.Context, referenceID string) (Status, error) {
	req, err := s.find(ctx, referenceID)
	if err != nil {
		return "", err
	}
	return req.Status, nil
}

// EnforceRetention scrubs identifying fields from terminal requests older
// than the retention window and flips them to ARCHIVED. Idempotent: already
// archived requests are skipped, and a second run over the same window
// archives nothing new. Per-reference locks are held only while flipping one
// request, so the sweep never blocks the intake or submission paths globally.
func (s *Service) EnforceRetention(ctx context.Context, now time.Time, retentionWindow time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "verification.EnforceRetention")
	defer span.End()

	cutoff := now.Add(-retentionWindow)
	candidates, err := s.store.FindExpired(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list retention candidates")
	}

	archived := 0
	for _, candidate := range candidates {
		if err := s.archiveOne(ctx, candidate.ReferenceID, cutoff, now); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "retention archive failed",
					"reference_id", candidate.ReferenceID, "error", err)
			}
			continue
		}
		archived++
	}
	if s.metrics != nil && archived > 0 {
		s.metrics.IncArchived(archived)
	}
	return archived, nil
}

// archiveOne re-checks eligibility under the per-reference lock; the
// candidate list may be stale by the time the lock is held.
func (s *Service) archiveOne(ctx context.Context, referenceID string, cutoff, now time.Time) error {
	s.locks.Lock(referenceID)
	defer s.locks.Unlock(referenceID)

	req, err := s.find(ctx, referenceID)
	if err != nil {
		return err
	}
	if req.Status == StatusArchived || !req.Status.Terminal() || !req.LastTransitionAt.Before(cutoff) {
		return sentinel.ErrInvalidState
	}

	req.DocumentNumberMasked = ""
	req.Contact = Contact{}
	req.Challenge = nil
	req.Status = StatusArchived
	req.LastTransitionAt = now
	if err := s.store.Save(ctx, req); err != nil {
		return err
	}
	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID: referenceID,
		Operation:   audit.OpRequestArchived,
		Outcome:     audit.OutcomeSuccess,
	})
	return nil
}

func (s *Service) find(ctx context.Context, referenceID string) (*Request, error) {
	req, err := s.store.FindByReference(ctx, referenceID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || isNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown reference id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification request")
	}
	return req, nil
}

// fail commits a terminal FAILED transition and audits it. Persistence
// failures here are logged, not returned: the caller already has a definite
// outcome to report.
func (s *Service) fail(ctx context.Context, req *Request, reason string) {
	req.FailureReason = reason
	s.transition(req, StatusFailed)
	if err := s.store.Save(ctx, req); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to persist terminal failure",
			"reference_id", req.ReferenceID, "reason", reason, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncFailed(reason)
	}
	s.recorder.Emit(ctx, audit.Entry{
		ReferenceID:   req.ReferenceID,
		Operation:     audit.OpVerificationFailed,
		Outcome:       audit.OutcomeFailure,
		MaskedPayload: "reason=" + reason,
	})
}

func (s *Service) transition(req *Request, next Status) {
	req.Status = next
	req.LastTransitionAt = s.now()
}

func (s *Service) initiateWithAuthority(ctx context.Context, dt identity.DocumentType, documentNumber string) (authority.InitiateResult, error) {
	start := s.now()
	result, err := s.authority.InitiateVerification(ctx, dt, documentNumber)
	if s.metrics != nil {
		s.metrics.ObserveAuthorityLatency(s.now().Sub(start).Seconds())
	}
	return result, err
}

func (s *Service) verifyWithAuthority(ctx context.Context, referenceID, code string) (authority.VerifyResult, error) {
	start := s.now()
	result, err := s.authority.VerifyOtp(ctx, referenceID, code)
	if s.metrics != nil {
		s.metrics.ObserveAuthorityLatency(s.now().Sub(start).Seconds())
	}
	return result, err
}

func maskContact(contact ContactInput) (Contact, error) {
	var out Contact
	if contact.Phone != "" {
		if !identity.IsValidMobile(contact.Phone) {
			return Contact{}, dErrors.New(dErrors.CodeValidation, "invalid contact phone")
		}
		out.PhoneMasked = masking.Mask(masking.KindPhone, contact.Phone)
	}
	if contact.Email != "" {
		if !identity.IsValidEmail(contact.Email) {
			return Contact{}, dErrors.New(dErrors.CodeValidation, "invalid contact email")
		}
		out.EmailMasked = masking.Mask(masking.KindEmail, contact.Email)
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
