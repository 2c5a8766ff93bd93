// Package usecases orchestrates the graduated login protection: every
// login attempt is checked, recorded, and escalated here, with audit
// and alerting fired best-effort off the decision path.
package usecases

import (
	"context"
	"errors"
	"time"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/domain/ratelimit"
	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/logger"
)

// CheckLimitUseCase classifies the current escalation state of an
// identifier without recording an attempt.
type CheckLimitUseCase struct {
	repo   ratelimit.Repository
	policy *ratelimit.Policy
	clk    clock.Clock
	logger logger.Interface
}

func NewCheckLimitUseCase(repo ratelimit.Repository, policy *ratelimit.Policy, clk clock.Clock, logger logger.Interface) *CheckLimitUseCase {
	return &CheckLimitUseCase{
		repo:   repo,
		policy: policy,
		clk:    clk,
		logger: logger,
	}
}

func (uc *CheckLimitUseCase) Execute(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error) {
	now := uc.clk.Now()

	record, err := uc.repo.GetByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, ratelimit.ErrRecordNotFound) {
		// Fail open: an unavailable store must not lock users out.
		uc.logger.Errorw("failed to load attempt record, failing open",
			"identifier", identifier, "error", err)
		record = nil
	}

	decision := uc.policy.Evaluate(record, now)
	return decisionToDTO(decision), nil
}

func decisionToDTO(d ratelimit.Decision) *dto.LimitStatusDTO {
	out := &dto.LimitStatusDTO{
		Allowed: d.Allowed,
		Blocked: d.Blocked,
	}
	if d.Blocked {
		blockedUntil := d.BlockedUntil
		retryAfter := int(roundUpSeconds(d.RetryAfter))
		out.BlockedUntil = &blockedUntil
		out.RetryAfterSeconds = &retryAfter
		return out
	}

	remaining := d.RemainingAttempts
	requiresCaptcha := d.RequiresCaptcha
	captchaRemaining := d.CaptchaAttemptsRemaining
	out.RemainingAttempts = &remaining
	out.RequiresCaptcha = &requiresCaptcha
	out.CaptchaAttemptsRemaining = &captchaRemaining
	return out
}

// roundUpSeconds keeps Retry-After honest: a block of 30.5s must not
// invite a retry at 30s.
func roundUpSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
