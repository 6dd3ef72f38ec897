package authority

import (
	"context"
	"strings"
	"time"

	"verity/internal/identity"
	"verity/pkg/platform/sentinel"
)

// MockClient is a deterministic in-process authority for development and
// tests, mirroring the mock-authority binary's rules: document numbers ending
// "00" are rejected, numbers ending "99" simulate an outage, and only the
// fixed dev code "123456" verifies.
type MockClient struct {
	Latency time.Duration
}

func (c MockClient) InitiateVerification(ctx context.Context, _ identity.DocumentType, documentNumber string) (InitiateResult, error) {
	if err := c.sleep(ctx); err != nil {
		return InitiateResult{}, err
	}
	switch {
	case strings.HasSuffix(documentNumber, "99"):
		return InitiateResult{}, sentinel.ErrUnavailable
	case strings.HasSuffix(documentNumber, "00"):
		return InitiateResult{Accepted: false, ErrorCode: "INVALID_DOCUMENT"}, nil
	default:
		return InitiateResult{Accepted: true}, nil
	}
}

func (c MockClient) VerifyOtp(ctx context.Context, _ string, code string) (VerifyResult, error) {
	if err := c.sleep(ctx); err != nil {
		return VerifyResult{}, err
	}
	if code != "123456" {
		return VerifyResult{Verified: false, ErrorCode: "OTP_MISMATCH"}, nil
	}
	return VerifyResult{Verified: true}, nil
}

func (c MockClient) sleep(ctx context.Context) error {
	if c.Latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return sentinel.ErrUnavailable
	case <-time.After(c.Latency):
		return nil
	}
}
