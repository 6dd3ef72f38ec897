package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verity/pkg/domain-errors"
)

func TestService(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		svc := NewService("test-signing-key", time.Hour)
		token, err := svc.GenerateToken("partner-bank")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "partner-bank", claims.ClientID)
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		issuer := NewService("key-one", time.Hour)
		verifier := NewService("key-two", time.Hour)

		token, err := issuer.GenerateToken("partner-bank")
		require.NoError(t, err)

		_, err = verifier.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		svc := NewService("test-signing-key", time.Hour)
		svc.tokenTTL = -time.Minute
		token, err := svc.GenerateToken("partner-bank")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		svc := NewService("test-signing-key", time.Hour)
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
	})
}
