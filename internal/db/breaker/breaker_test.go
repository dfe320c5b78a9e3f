package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpensAfterThreshold(t *testing.T) {
	b := New(3, time.Minute)
	assert.Equal(t, Closed, b.State())

	b.Failure()
	b.Failure()
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

func TestSuccessResetsTheCount(t *testing.T) {
	b := New(2, time.Minute)

	b.Failure()
	b.Success()
	b.Failure()
	assert.Equal(t, Closed, b.State(), "non-consecutive failures do not open the circuit")
}

func TestHalfOpenProbe(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.Failure()
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(), "the cooldown admits one probe")
	assert.Equal(t, HalfOpen, b.State())

	b.Failure()
	assert.Equal(t, Open, b.State(), "a failed probe reopens the circuit")

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	b.Success()
	assert.Equal(t, Closed, b.State(), "a successful probe closes the circuit")
}

func TestDo(t *testing.T) {
	b := New(1, time.Minute)

	require.NoError(t, b.Do(func() error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "an open circuit rejects without calling the backend")
}
