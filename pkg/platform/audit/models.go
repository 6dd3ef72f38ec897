// Package audit captures masked, append-only trace entries for every state
// transition and external call in the verification lifecycle. Entries are
// privacy-safe by construction: payloads pass through the masking codec
// before they reach this package.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the lifecycle step an entry records.
type Operation string

const (
	OpEkycInitiated      Operation = "ekyc_initiated"
	OpOtpDispatched      Operation = "otp_dispatched"
	OpOtpResent          Operation = "otp_resent"
	OpOtpRejected        Operation = "otp_rejected"
	OpOtpExpired         Operation = "otp_expired"
	OpOtpVerified        Operation = "otp_verified"
	OpVerificationFailed Operation = "verification_failed"
	OpRequestArchived    Operation = "request_archived"
)

// Outcome classifies how the recorded step ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one masked record of a state transition or external call.
// Append-only; never mutated after emission.
type Entry struct {
	ID            uuid.UUID
	TraceID       string
	ReferenceID   string
	Operation     Operation
	Outcome       Outcome
	MaskedPayload string
	Channel       string
	Timestamp     time.Time
}
