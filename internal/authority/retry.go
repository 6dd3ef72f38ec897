package authority

import "time"

// RetryPolicy makes the transport retry count and backoff curve a visible,
// testable parameter of the client wrapper. The orchestrator itself never
// retries; any retrying happens inside the client, bounded by this policy.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	// 1 means no retry.
	MaxAttempts int
	// BaseDelay is the delay before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff curve.
	MaxDelay time.Duration
}

// DefaultRetryPolicy performs a single attempt: retry policy belongs to the
// caller or a supervising job unless a deployment opts in.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Backoff returns the delay to wait before the given retry attempt
// (attempt 1 = first retry).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
