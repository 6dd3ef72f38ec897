package authority

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/identity"
	"verity/pkg/platform/sentinel"
)

func TestHTTPClient_InitiateVerification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/otp/initiate", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "NATIONAL_ID_12", req["documentType"])
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, DefaultRetryPolicy(), nil)
	res, err := c.InitiateVerification(context.Background(), identity.DocumentTypeNationalID12, "234567890123")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestHTTPClient_LogicalRejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": false, "errorCode": "INVALID_DOCUMENT"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, DefaultRetryPolicy(), nil)
	res, err := c.InitiateVerification(context.Background(), identity.DocumentTypeNationalID12, "234567890100")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "INVALID_DOCUMENT", res.ErrorCode)
}

func TestHTTPClient_ServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, DefaultRetryPolicy(), nil)
	_, err := c.VerifyOtp(context.Background(), "ref", "123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestHTTPClient_RetriesPerPolicy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"verified": true})
	}))
	defer srv.Close()

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	c := NewHTTPClient(srv.URL, time.Second, policy, nil)
	res, err := c.VerifyOtp(context.Background(), "ref", "123456")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client abort and cancel the request context; otherwise Close
		// deadlocks waiting on this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewHTTPClient(srv.URL, time.Second, DefaultRetryPolicy(), nil)
	_, err := c.VerifyOtp(ctx, "ref", "123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3), "capped at MaxDelay")
}

func TestMockClient(t *testing.T) {
	ctx := context.Background()
	c := MockClient{}

	res, err := c.InitiateVerification(ctx, identity.DocumentTypeNationalID12, "234567890123")
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	res, err = c.InitiateVerification(ctx, identity.DocumentTypeNationalID12, "234567890100")
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	_, err = c.InitiateVerification(ctx, identity.DocumentTypeNationalID12, "234567890199")
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))

	vres, err := c.VerifyOtp(ctx, "ref", "123456")
	require.NoError(t, err)
	assert.True(t, vres.Verified)

	vres, err = c.VerifyOtp(ctx, "ref", "000000")
	require.NoError(t, err)
	assert.False(t, vres.Verified)
}
