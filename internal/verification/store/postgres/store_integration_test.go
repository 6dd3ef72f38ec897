//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"verity/internal/identity"
	"verity/internal/otp"
	"verity/internal/verification"
	"verity/pkg/platform/sentinel"
	"verity/pkg/testutil/containers"
)

// memChallenges is a map-backed challenge store so the request-store tests do
// not also need a Redis container.
type memChallenges struct {
	mu sync.Mutex
	m  map[string]*otp.Challenge
}

func newMemChallenges() *memChallenges {
	return &memChallenges{m: make(map[string]*otp.Challenge)}
}

func (s *memChallenges) Save(_ context.Context, c *otp.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.m[c.ReferenceID] = &cp
	return nil
}

func (s *memChallenges) Find(_ context.Context, referenceID string) (*otp.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[referenceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memChallenges) Delete(_ context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, referenceID)
	return nil
}

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	newRequest := func(ref string, status verification.Status, transitionAt time.Time) *verification.Request {
		return &verification.Request{
			ReferenceID:          ref,
			DocumentType:         identity.DocumentTypeNationalID12,
			DocumentNumberMasked: "XXXX-XXXX-0124",
			Consent:              verification.Consent{IdentityVerification: true},
			Contact:              verification.Contact{PhoneMasked: "XXXX-3210"},
			Status:               status,
			CreatedAt:            now,
			LastTransitionAt:     transitionAt,
		}
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		store := New(pc.DB, newMemChallenges())

		req := newRequest("ref-roundtrip", verification.StatusInitiated, now)
		require.NoError(t, store.Save(ctx, req))

		got, err := store.FindByReference(ctx, "ref-roundtrip")
		require.NoError(t, err)
		require.Equal(t, req.DocumentNumberMasked, got.DocumentNumberMasked)
		require.Equal(t, req.Status, got.Status)
		require.True(t, got.Consent.IdentityVerification)
		require.Equal(t, "XXXX-3210", got.Contact.PhoneMasked)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		store := New(pc.DB, newMemChallenges())

		req := newRequest("ref-upsert", verification.StatusInitiated, now)
		require.NoError(t, store.Save(ctx, req))
		req.Status = verification.StatusFailed
		req.FailureReason = "AUTHORITY_UNAVAILABLE"
		req.LastTransitionAt = now.Add(time.Minute)
		require.NoError(t, store.Save(ctx, req))

		got, err := store.FindByReference(ctx, "ref-upsert")
		require.NoError(t, err)
		require.Equal(t, verification.StatusFailed, got.Status)
		require.Equal(t, "AUTHORITY_UNAVAILABLE", got.FailureReason)
	})

	t.Run("not found", func(t *testing.T) {
		store := New(pc.DB, newMemChallenges())
		_, err := store.FindByReference(ctx, "no-such-reference")
		require.Error(t, err)
		require.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("challenge rides along for awaiting requests", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		challenges := newMemChallenges()
		store := New(pc.DB, challenges)

		req := newRequest("ref-challenge", verification.StatusAwaitingOtp, now)
		req.Challenge = &otp.Challenge{
			ReferenceID:       "ref-challenge",
			Code:              "123456",
			IssuedAt:          now,
			ExpiresAt:         now.Add(5 * time.Minute),
			AttemptsRemaining: 3,
		}
		require.NoError(t, store.Save(ctx, req))

		got, err := store.FindByReference(ctx, "ref-challenge")
		require.NoError(t, err)
		require.NotNil(t, got.Challenge)
		require.Equal(t, 3, got.Challenge.AttemptsRemaining)

		// Clearing the challenge on save deletes it from the challenge store.
		req.Challenge = nil
		req.Status = verification.StatusVerified
		require.NoError(t, store.Save(ctx, req))
		_, err = challenges.Find(ctx, "ref-challenge")
		require.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("reaped challenge surfaces as already expired", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		store := New(pc.DB, newMemChallenges())

		req := newRequest("ref-reaped", verification.StatusAwaitingOtp, now)
		require.NoError(t, store.Save(ctx, req))

		got, err := store.FindByReference(ctx, "ref-reaped")
		require.NoError(t, err)
		require.NotNil(t, got.Challenge)
		require.True(t, got.Challenge.Expired(now))
	})

	t.Run("find expired returns only terminal rows past the cutoff", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		store := New(pc.DB, newMemChallenges())

		old := now.Add(-100 * 24 * time.Hour)
		require.NoError(t, store.Save(ctx, newRequest("ref-old-verified", verification.StatusVerified, old)))
		require.NoError(t, store.Save(ctx, newRequest("ref-old-awaiting", verification.StatusAwaitingOtp, old)))
		require.NoError(t, store.Save(ctx, newRequest("ref-fresh-failed", verification.StatusFailed, now)))
		require.NoError(t, store.Save(ctx, newRequest("ref-archived", verification.StatusArchived, old)))

		expired, err := store.FindExpired(ctx, now.Add(-90*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, expired, 1)
		require.Equal(t, "ref-old-verified", expired[0].ReferenceID)
	})
}
