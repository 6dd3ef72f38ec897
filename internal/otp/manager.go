// Package otp issues and checks one-time-password challenges. The manager
// enforces expiry and bounded attempts locally so the orchestrator guarantees
// those limits regardless of identity-authority behavior.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the fixed OTP digit count.
	CodeLength = 6

	// DefaultTTL matches the authority-specified challenge validity.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxAttempts bounds failed submissions per challenge.
	DefaultMaxAttempts = 3
)

var codeSpace = big.NewInt(1_000_000)

// Manager issues challenges and checks submitted codes.
type Manager struct {
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the challenge validity window.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMaxAttempts overrides the failed-submission bound.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager with the default TTL and attempt bound.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// MaxAttempts returns the configured failed-submission bound.
func (m *Manager) MaxAttempts() int {
	return m.maxAttempts
}

// Issue generates a cryptographically random numeric code and returns the
// challenge with a fresh attempt allowance.
func (m *Manager) Issue(referenceID string) (*Challenge, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}
	issued := m.now()
	return &Challenge{
		ReferenceID:       referenceID,
		Code:              fmt.Sprintf("%06d", n.Int64()),
		IssuedAt:          issued,
		ExpiresAt:         issued.Add(m.ttl),
		AttemptsRemaining: m.maxAttempts,
	}, nil
}

// Check reports whether the submitted code matches the challenge. The
// comparison is constant-time: in-memory codes compare via crypto/subtle
// without early exit; rehydrated challenges compare against the bcrypt hash.
func (m *Manager) Check(challenge *Challenge, submitted string) bool {
	if challenge == nil {
		return false
	}
	submitted = strings.TrimSpace(submitted)
	if challenge.Code != "" {
		return subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(submitted)) == 1
	}
	if len(challenge.CodeHash) > 0 {
		return bcrypt.CompareHashAndPassword(challenge.CodeHash, []byte(submitted)) == nil
	}
	return false
}

// HashCode returns the bcrypt hash of a challenge code for stores that must
// persist challenge state across a process boundary. The plaintext code is
// never written outside process memory.
func HashCode(code string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp code: %w", err)
	}
	return hash, nil
}
