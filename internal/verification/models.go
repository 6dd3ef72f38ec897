package verification

import (
	"time"

	"verity/internal/identity"
	"verity/internal/otp"
)

// Status is the lifecycle state of a verification request. Transitions are
// monotonic: INITIATED -> AWAITING_OTP -> VERIFIED or FAILED; EXPIRED from
// AWAITING_OTP when the OTP TTL elapses; ARCHIVED from any terminal state
// after the retention window. There are no regressions.
type Status string

const (
	StatusInitiated   Status = "INITIATED"
	StatusAwaitingOtp Status = "AWAITING_OTP"
	StatusVerified    Status = "VERIFIED"
	StatusFailed      Status = "FAILED"
	StatusExpired     Status = "EXPIRED"
	StatusArchived    Status = "ARCHIVED"
)

// Terminal reports whether the status admits no further verification work.
// ARCHIVED counts as terminal; only retention reaches it.
func (s Status) Terminal() bool {
	switch s {
	case StatusVerified, StatusFailed, StatusExpired, StatusArchived:
		return true
	}
	return false
}

// Failure reasons recorded on FAILED requests.
const (
	ReasonAuthorityUnavailable = "AUTHORITY_UNAVAILABLE"
	ReasonAuthorityRejected    = "AUTHORITY_REJECTED"
	ReasonOtpAttemptsExhausted = "OTP_ATTEMPTS_EXHAUSTED"
	ReasonOtpRejected          = "OTP_REJECTED"
)

// Consent captures the permissions the applicant granted at intake.
// IdentityVerification is mandatory; its absence is a validation failure
// before any request is created.
type Consent struct {
	IdentityVerification bool
	ContactUse           bool
}

// Contact holds optional, already-masked contact fields. Unmasked contact
// data never persists beyond the intake validation step.
type Contact struct {
	PhoneMasked string
	EmailMasked string
}

// Request is one applicant's eKYC attempt. The orchestrator exclusively owns
// a request and its embedded challenge for the request's lifetime.
type Request struct {
	ReferenceID          string
	DocumentType         identity.DocumentType
	DocumentNumberMasked string
	Consent              Consent
	Contact              Contact
	Status               Status
	Challenge            *otp.Challenge
	CreatedAt            time.Time
	LastTransitionAt     time.Time
	FailureReason        string
}
