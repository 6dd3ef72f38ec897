package otp

import "context"

// ChallengeStore persists challenge state for deployments where verification
// requests outlive a single process. Implementations must never persist the
// plaintext code; only CodeHash crosses the boundary.
type ChallengeStore interface {
	Save(ctx context.Context, challenge *Challenge) error
	Find(ctx context.Context, referenceID string) (*Challenge, error)
	Delete(ctx context.Context, referenceID string) error
}
