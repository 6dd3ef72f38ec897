package otp

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(WithTTL(5*time.Minute), WithMaxAttempts(3), WithClock(func() time.Time { return now }))

	ch, err := m.Issue("ref-1")
	require.NoError(t, err)

	assert.Equal(t, "ref-1", ch.ReferenceID)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), ch.Code)
	assert.Equal(t, now, ch.IssuedAt)
	assert.Equal(t, now.Add(5*time.Minute), ch.ExpiresAt)
	assert.Equal(t, 3, ch.AttemptsRemaining)
}

func TestIssue_CodesVary(t *testing.T) {
	m := NewManager()
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		ch, err := m.Issue("ref")
		require.NoError(t, err)
		seen[ch.Code] = true
	}
	// Collisions are possible but 32 identical draws are not.
	assert.Greater(t, len(seen), 1)
}

func TestCheck(t *testing.T) {
	m := NewManager()
	ch := &Challenge{Code: "123456"}

	assert.True(t, m.Check(ch, "123456"))
	assert.True(t, m.Check(ch, " 123456 "), "normalized before compare")
	assert.False(t, m.Check(ch, "123457"))
	assert.False(t, m.Check(ch, ""))
	assert.False(t, m.Check(nil, "123456"))
}

func TestCheck_HashedChallenge(t *testing.T) {
	m := NewManager()
	hash, err := HashCode("654321")
	require.NoError(t, err)
	ch := &Challenge{CodeHash: hash}

	assert.True(t, m.Check(ch, "654321"))
	assert.False(t, m.Check(ch, "123456"))
}

func TestCheck_NoSecretMaterial(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Check(&Challenge{}, "123456"))
}

func TestExpiredAndExhausted(t *testing.T) {
	now := time.Now()
	ch := &Challenge{ExpiresAt: now.Add(time.Minute), AttemptsRemaining: 1}

	assert.False(t, ch.Expired(now))
	assert.True(t, ch.Expired(now.Add(2*time.Minute)))
	assert.False(t, ch.Exhausted())
	ch.AttemptsRemaining = 0
	assert.True(t, ch.Exhausted())
}
