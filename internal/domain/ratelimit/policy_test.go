package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func failNTimes(t *testing.T, p *Policy, record *AttemptRecord, n int, captchaSolved bool) Decision {
	t.Helper()
	var decision Decision
	for i := 0; i < n; i++ {
		decision = p.RegisterFailure(record, testNow, captchaSolved)
	}
	return decision
}

func TestPolicy_CaptchaThreshold(t *testing.T) {
	p := NewPolicy()

	for n := 0; n <= 30; n++ {
		got := p.RequiresCaptcha(n)
		assert.Equal(t, n >= 3, got, "attempts=%d", n)
	}
}

func TestPolicy_TierDurationsWithCaptchaSolved(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		block    time.Duration
	}{
		{"first tier at 8 blocks 15m", 8, 15 * time.Minute},
		{"second tier at 15 blocks 60m", 15, 60 * time.Minute},
		{"third tier at 25 blocks 24h", 25, 1440 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy()
			record := NewAttemptRecord("203.0.113.7")

			decision := failNTimes(t, p, record, tt.failures, true)

			require.True(t, decision.NewlyBlocked)
			assert.Equal(t, testNow.Add(tt.block), record.BlockedUntil())
			assert.Equal(t, tt.block, decision.RetryAfter)
		})
	}
}

func TestPolicy_NoBlockWithoutSolvedCaptcha(t *testing.T) {
	// Past the CAPTCHA gate, a tier crossing without a solved CAPTCHA
	// must not apply a time block. The challenge itself is the stop.
	p := NewPolicy()
	record := NewAttemptRecord("203.0.113.7")

	decision := failNTimes(t, p, record, 25, false)

	assert.False(t, decision.NewlyBlocked)
	assert.False(t, decision.Blocked)
	assert.True(t, decision.RequiresCaptcha)
	assert.True(t, record.BlockedUntil().IsZero(), "no lockout may be set")
	assert.Equal(t, 25, record.FailedAttempts(), "attempts keep counting")
}

func TestPolicy_BlockBeforeCaptchaGateNotGated(t *testing.T) {
	// With the gate moved above the first tier, a pre-gate tier
	// crossing blocks even without a CAPTCHA.
	p := NewPolicyWith(DefaultWindow, 10, DefaultTiers)
	record := NewAttemptRecord("203.0.113.7")

	decision := failNTimes(t, p, record, 8, false)

	assert.True(t, decision.NewlyBlocked)
}

func TestPolicy_HighestTierWins(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, time.Duration(0), p.BlockDuration(7))
	assert.Equal(t, 15*time.Minute, p.BlockDuration(8))
	assert.Equal(t, 15*time.Minute, p.BlockDuration(14))
	assert.Equal(t, 60*time.Minute, p.BlockDuration(15))
	assert.Equal(t, 60*time.Minute, p.BlockDuration(24))
	assert.Equal(t, 1440*time.Minute, p.BlockDuration(25))
	assert.Equal(t, 1440*time.Minute, p.BlockDuration(100))
}

func TestPolicy_RemainingAttempts(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, 8, p.RemainingAttempts(0))
	assert.Equal(t, 3, p.RemainingAttempts(5))
	assert.Equal(t, 7, p.RemainingAttempts(8))
	assert.Equal(t, 10, p.RemainingAttempts(15))
	assert.Equal(t, 0, p.RemainingAttempts(25))
}

func TestPolicy_CaptchaAttemptsRemaining(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, 3, p.CaptchaAttemptsRemaining(0), "distance to the gate before it is crossed")
	assert.Equal(t, 1, p.CaptchaAttemptsRemaining(2))
	assert.Equal(t, 5, p.CaptchaAttemptsRemaining(3), "distance to the first tier once gated")
	assert.Equal(t, 1, p.CaptchaAttemptsRemaining(7))
	assert.Equal(t, 0, p.CaptchaAttemptsRemaining(9))
}

func TestPolicy_EvaluateBlockedRecord(t *testing.T) {
	p := NewPolicy()
	record := RehydrateAttemptRecord(1, "203.0.113.7", 8,
		testNow.Add(-5*time.Minute), testNow.Add(10*time.Minute), testNow.Add(-time.Minute))

	decision := p.Evaluate(record, testNow)

	assert.True(t, decision.Blocked)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 10*time.Minute, decision.RetryAfter)
}

func TestPolicy_EvaluateNilRecord(t *testing.T) {
	p := NewPolicy()

	decision := p.Evaluate(nil, testNow)

	assert.True(t, decision.Allowed)
	assert.False(t, decision.Blocked)
	assert.False(t, decision.RequiresCaptcha)
	assert.Equal(t, 8, decision.RemainingAttempts)
	assert.Equal(t, 3, decision.CaptchaAttemptsRemaining)
}

func TestPolicy_EvaluateTreatsExpiredWindowAsClean(t *testing.T) {
	p := NewPolicy()
	record := RehydrateAttemptRecord(1, "203.0.113.7", 6,
		testNow.Add(-16*time.Minute), time.Time{}, testNow.Add(-16*time.Minute))

	decision := p.Evaluate(record, testNow)

	assert.True(t, decision.Allowed)
	assert.False(t, decision.RequiresCaptcha)
	assert.Equal(t, 8, decision.RemainingAttempts)
}
