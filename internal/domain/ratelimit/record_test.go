package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptRecord_WindowRestartAfterExpiry(t *testing.T) {
	record := NewAttemptRecord("198.51.100.2")

	record.RegisterFailure(testNow, DefaultWindow)
	record.RegisterFailure(testNow.Add(time.Minute), DefaultWindow)
	assert.Equal(t, 2, record.FailedAttempts())
	assert.Equal(t, testNow, record.FirstFailedAt())

	// More than 15 minutes after the window opened, the next failure
	// restarts counting at 1.
	later := testNow.Add(16 * time.Minute)
	record.RegisterFailure(later, DefaultWindow)
	assert.Equal(t, 1, record.FailedAttempts())
	assert.Equal(t, later, record.FirstFailedAt())
}

func TestAttemptRecord_WindowBoundaryIsExclusive(t *testing.T) {
	record := NewAttemptRecord("198.51.100.2")

	record.RegisterFailure(testNow, DefaultWindow)
	record.RegisterFailure(testNow.Add(DefaultWindow), DefaultWindow)
	assert.Equal(t, 2, record.FailedAttempts(), "a failure exactly at window edge still increments")

	record2 := NewAttemptRecord("198.51.100.3")
	record2.RegisterFailure(testNow, DefaultWindow)
	record2.RegisterFailure(testNow.Add(DefaultWindow+time.Nanosecond), DefaultWindow)
	assert.Equal(t, 1, record2.FailedAttempts())
}

func TestAttemptRecord_Blocking(t *testing.T) {
	record := NewAttemptRecord("198.51.100.2")
	record.RegisterFailure(testNow, DefaultWindow)
	record.Block(testNow, 15*time.Minute)

	assert.True(t, record.IsBlocked(testNow))
	assert.Equal(t, 15*time.Minute, record.RetryAfter(testNow))
	assert.Equal(t, 5*time.Minute, record.RetryAfter(testNow.Add(10*time.Minute)))

	expiry := testNow.Add(15 * time.Minute)
	assert.False(t, record.IsBlocked(expiry), "block expires exactly at blockedUntil")
	assert.Equal(t, time.Duration(0), record.RetryAfter(expiry))
}
