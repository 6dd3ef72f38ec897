package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	t.Run("opens after the failure threshold", func(t *testing.T) {
		b := New("test", WithFailureThreshold(3))

		for i := 0; i < 2; i++ {
			fallback, change := b.RecordFailure()
			assert.False(t, fallback)
			assert.False(t, change.Opened)
		}
		fallback, change := b.RecordFailure()
		assert.True(t, fallback)
		assert.True(t, change.Opened)
		assert.True(t, b.IsOpen())
	})

	t.Run("success resets the failure count while closed", func(t *testing.T) {
		b := New("test", WithFailureThreshold(2))

		b.RecordFailure()
		b.RecordSuccess()
		fallback, _ := b.RecordFailure()
		assert.False(t, fallback)
		assert.False(t, b.IsOpen())
	})

	t.Run("closes after consecutive successes while open", func(t *testing.T) {
		b := New("test", WithFailureThreshold(1), WithSuccessThreshold(2))

		b.RecordFailure()
		assert.True(t, b.IsOpen())

		primary, change := b.RecordSuccess()
		assert.False(t, primary)
		assert.False(t, change.Closed)

		primary, change = b.RecordSuccess()
		assert.True(t, primary)
		assert.True(t, change.Closed)
		assert.False(t, b.IsOpen())
	})

	t.Run("failure while open does not re-announce the transition", func(t *testing.T) {
		b := New("test", WithFailureThreshold(1))
		b.RecordFailure()

		fallback, change := b.RecordFailure()
		assert.True(t, fallback)
		assert.False(t, change.Opened)
	})

	t.Run("reset returns to closed", func(t *testing.T) {
		b := New("test", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		assert.Equal(t, StateClosed, b.State())
	})
}
