package otp

import "time"

// Challenge is one issued OTP tied to a verification request. The plaintext
// code lives only in process memory for the duration of its validity; stores
// that cross a process boundary persist a bcrypt hash instead (CodeHash) and
// leave Code empty on load. The code is never logged or audited.
type Challenge struct {
	ReferenceID       string
	Code              string
	CodeHash          []byte
	IssuedAt          time.Time
	ExpiresAt         time.Time
	AttemptsRemaining int
	Resends           int
}

// Expired reports whether the challenge TTL has elapsed at the given instant.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether no verification attempts remain.
func (c *Challenge) Exhausted() bool {
	return c.AttemptsRemaining <= 0
}
