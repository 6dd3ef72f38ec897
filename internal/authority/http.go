package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verity/internal/identity"
	"verity/pkg/platform/sentinel"
)

// HTTPClient talks to the identity authority over HTTP. Logical rejections
// come back as results; connection failures, timeouts, and non-2xx responses
// are transport errors wrapped around sentinel.ErrUnavailable so the
// orchestrator can map them to AUTHORITY_UNAVAILABLE.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	policy  RetryPolicy
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHTTPClient creates an authority client. timeout bounds each round trip;
// the retry policy bounds transport-level retries inside the wrapper.
func NewHTTPClient(baseURL string, timeout time.Duration, policy RetryPolicy, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		policy:  policy,
		logger:  logger,
		tracer:  otel.Tracer("verity/authority"),
	}
}

type initiateRequest struct {
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

type initiateResponse struct {
	Accepted  bool   `json:"accepted"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type verifyRequest struct {
	ReferenceID string `json:"referenceId"`
	Otp         string `json:"otp"`
}

type verifyResponse struct {
	Verified  bool   `json:"verified"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// InitiateVerification asks the authority to validate the document and
// dispatch an OTP to the holder's registered contact channel.
func (c *HTTPClient) InitiateVerification(ctx context.Context, documentType identity.DocumentType, documentNumber string) (InitiateResult, error) {
	ctx, span := c.tracer.Start(ctx, "authority.InitiateVerification",
		trace.WithAttributes(attribute.String("document.type", documentType.String())))
	defer span.End()

	var out initiateResponse
	err := c.post(ctx, "/otp/initiate", initiateRequest{
		DocumentType:   documentType.String(),
		DocumentNumber: documentNumber,
	}, &out)
	if err != nil {
		span.RecordError(err)
		return InitiateResult{}, err
	}
	return InitiateResult{Accepted: out.Accepted, ErrorCode: out.ErrorCode}, nil
}

// VerifyOtp asks the authority to confirm the submitted code.
func (c *HTTPClient) VerifyOtp(ctx context.Context, referenceID, code string) (VerifyResult, error) {
	ctx, span := c.tracer.Start(ctx, "authority.VerifyOtp",
		trace.WithAttributes(attribute.String("reference.id", referenceID)))
	defer span.End()

	var out verifyResponse
	err := c.post(ctx, "/otp/verify", verifyRequest{ReferenceID: referenceID, Otp: code}, &out)
	if err != nil {
		span.RecordError(err)
		return VerifyResult{}, err
	}
	return VerifyResult{Verified: out.Verified, ErrorCode: out.ErrorCode}, nil
}

// post performs one JSON round trip with bounded transport retries.
func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal authority request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.attempts(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("authority call canceled: %w", sentinel.ErrUnavailable)
			case <-time.After(c.policy.Backoff(attempt)):
			}
			if c.logger != nil {
				c.logger.WarnContext(ctx, "retrying authority call", "path", path, "attempt", attempt+1)
			}
		}
		lastErr = c.do(ctx, path, body, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *HTTPClient) do(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build authority request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		req.Header.Set("X-Trace-Id", sc.TraceID().String())
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("authority transport: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("authority returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode authority response: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}
