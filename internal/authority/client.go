// Package authority defines the identity-authority collaborator contract:
// the external system of record that validates document numbers and issues
// and checks OTP challenges.
package authority

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"

	"verity/internal/identity"
)

// InitiateResult is the logical outcome of an initiate-verification call.
// A rejected initiation is not an error; transport failures are.
type InitiateResult struct {
	Accepted  bool
	ErrorCode string
}

// VerifyResult is the logical outcome of a verify-OTP call.
type VerifyResult struct {
	Verified  bool
	ErrorCode string
}

// Client performs the two remote calls against the identity authority. Both
// may fail with a transport error (wrapped sentinel.ErrUnavailable) distinct
// from a logical false result. Implementations must respect ctx cancellation.
type Client interface {
	InitiateVerification(ctx context.Context, documentType identity.DocumentType, documentNumber string) (InitiateResult, error)
	VerifyOtp(ctx context.Context, referenceID, code string) (VerifyResult, error)
}
