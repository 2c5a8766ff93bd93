// Package ratelimit implements graduated brute-force protection for the
// login path: a per-identifier sliding-window failure counter escalating
// from a CAPTCHA challenge to tiered time-based lockouts.
package ratelimit

import "time"

// Default policy constants, exposed for tests.
const (
	DefaultWindow           = 15 * time.Minute
	DefaultCaptchaThreshold = 3
)

// Tier maps an attempt-count threshold to a block duration. When
// several tiers are reached, the highest wins.
type Tier struct {
	Attempts int
	Block    time.Duration
}

// DefaultTiers escalate 15 minutes -> 1 hour -> 24 hours.
var DefaultTiers = []Tier{
	{Attempts: 8, Block: 15 * time.Minute},
	{Attempts: 15, Block: 60 * time.Minute},
	{Attempts: 25, Block: 1440 * time.Minute},
}

// Policy decides, for a failure count inside one window, whether a
// CAPTCHA is required and whether a tiered lockout applies.
type Policy struct {
	window           time.Duration
	captchaThreshold int
	tiers            []Tier
}

// NewPolicy returns the production policy.
func NewPolicy() *Policy {
	return NewPolicyWith(DefaultWindow, DefaultCaptchaThreshold, DefaultTiers)
}

// NewPolicyWith builds a policy with explicit thresholds. Tiers must be
// ordered by ascending attempt count.
func NewPolicyWith(window time.Duration, captchaThreshold int, tiers []Tier) *Policy {
	return &Policy{
		window:           window,
		captchaThreshold: captchaThreshold,
		tiers:            tiers,
	}
}

func (p *Policy) Window() time.Duration { return p.window }

func (p *Policy) CaptchaThreshold() int { return p.captchaThreshold }

// RequiresCaptcha reports whether attempts has crossed the CAPTCHA gate.
func (p *Policy) RequiresCaptcha(attempts int) bool {
	return attempts >= p.captchaThreshold
}

// BlockDuration returns the lockout for the highest tier reached by
// attempts, or zero when no tier is reached.
func (p *Policy) BlockDuration(attempts int) time.Duration {
	var block time.Duration
	for _, tier := range p.tiers {
		if attempts >= tier.Attempts {
			block = tier.Block
		}
	}
	return block
}

// RemainingAttempts returns the distance from attempts to the next tier
// threshold, or zero once the final tier is reached.
func (p *Policy) RemainingAttempts(attempts int) int {
	for _, tier := range p.tiers {
		if attempts < tier.Attempts {
			return tier.Attempts - attempts
		}
	}
	return 0
}

// CaptchaAttemptsRemaining returns, once the CAPTCHA gate is crossed,
// the distance to the first lockout tier; before the gate it is the
// distance to the gate itself.
func (p *Policy) CaptchaAttemptsRemaining(attempts int) int {
	if p.RequiresCaptcha(attempts) {
		if len(p.tiers) == 0 {
			return 0
		}
		remaining := p.tiers[0].Attempts - attempts
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return p.captchaThreshold - attempts
}

// Decision is the outcome of evaluating or updating a record.
type Decision struct {
	Allowed                  bool
	Blocked                  bool
	NewlyBlocked             bool
	BlockedUntil             time.Time
	RetryAfter               time.Duration
	RemainingAttempts        int
	RequiresCaptcha          bool
	CaptchaAttemptsRemaining int
}

// Evaluate classifies the current state of a record without mutating
// it. A nil record means no failures on file.
func (p *Policy) Evaluate(record *AttemptRecord, now time.Time) Decision {
	if record == nil {
		return Decision{
			Allowed:                  true,
			RemainingAttempts:        p.RemainingAttempts(0),
			CaptchaAttemptsRemaining: p.CaptchaAttemptsRemaining(0),
		}
	}

	if record.IsBlocked(now) {
		return Decision{
			Blocked:      true,
			BlockedUntil: record.BlockedUntil(),
			RetryAfter:   record.RetryAfter(now),
		}
	}

	attempts := record.FailedAttempts()
	if record.WindowExpired(now, p.window) {
		attempts = 0
	}
	return Decision{
		Allowed:                  true,
		RemainingAttempts:        p.RemainingAttempts(attempts),
		RequiresCaptcha:          p.RequiresCaptcha(attempts),
		CaptchaAttemptsRemaining: p.CaptchaAttemptsRemaining(attempts),
	}
}

// RegisterFailure counts a failed attempt against the record and
// applies the tiered lockout when one is due.
//
// A lockout is applied only when a tier is reached AND the attempt
// either carried a solved CAPTCHA or predates the CAPTCHA gate. An
// identifier past the gate that never solves a CAPTCHA is therefore
// never time-blocked by this path; its attempts keep counting until a
// CAPTCHA-accompanied failure crosses a tier. Intentional: the CAPTCHA
// challenge itself is the stop for unattended clients.
func (p *Policy) RegisterFailure(record *AttemptRecord, now time.Time, captchaSolved bool) Decision {
	record.RegisterFailure(now, p.window)
	return p.ApplyAfterFailure(record, now, captchaSolved)
}

// ApplyAfterFailure applies the CAPTCHA gate and lockout tiers to a
// record whose failure has already been counted, typically by an atomic
// increment at the storage layer.
func (p *Policy) ApplyAfterFailure(record *AttemptRecord, now time.Time, captchaSolved bool) Decision {
	attempts := record.FailedAttempts()
	requiresCaptcha := p.RequiresCaptcha(attempts)
	block := p.BlockDuration(attempts)

	newlyBlocked := false
	if block > 0 && (captchaSolved || !requiresCaptcha) {
		record.Block(now, block)
		newlyBlocked = true
	}

	decision := Decision{
		Allowed:                  !newlyBlocked,
		Blocked:                  newlyBlocked,
		NewlyBlocked:             newlyBlocked,
		RemainingAttempts:        p.RemainingAttempts(attempts),
		RequiresCaptcha:          requiresCaptcha,
		CaptchaAttemptsRemaining: p.CaptchaAttemptsRemaining(attempts),
	}
	if newlyBlocked {
		decision.BlockedUntil = record.BlockedUntil()
		decision.RetryAfter = record.RetryAfter(now)
	}
	return decision
}
