package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreaker_PassesResult(t *testing.T) {
	b := New[int]("test", Options{})

	v, err := b.Execute(func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New[int]("test", Options{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}

	called := false
	_, err := b.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	assert.True(t, IsOpen(err))
	assert.False(t, called, "open breaker must not call through")
	assert.Equal(t, "open", b.State())
}

func TestBreaker_IsSuccessfulIgnoresBusinessErrors(t *testing.T) {
	errNotFound := errors.New("not found")
	b := New[int]("test", Options{
		ConsecutiveFailures: 1,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
	})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errNotFound })
		require.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

func TestIsOpen_OtherErrors(t *testing.T) {
	assert.False(t, IsOpen(errBoom))
	assert.False(t, IsOpen(nil))
}
