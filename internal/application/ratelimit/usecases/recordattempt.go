package usecases

import (
	"context"
	"fmt"
	"time"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/domain/audit"
	"clipforge/internal/domain/ratelimit"
	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/goroutine"
	"clipforge/internal/shared/logger"
)

// AlertNotifier delivers a notification when an identifier is newly
/// blocked. Implementations are best-effort: they catch and log their
// own failures and never propagate them to the decision path.
type AlertNotifier interface {
	NotifyBlock(identifier string, failedAttempts int, blockedUntil time.Time)
}

// RecordAttemptCommand describes one login attempt outcome.
type RecordAttemptCommand struct {
	Identifier    string
	Success       bool
	CaptchaSolved bool
}

// RecordAttemptUseCase updates the failure window for an identifier and
// applies the graduated escalation. Audit entries are appended for
// every failure and an alert fires when a block is newly applied; both
// are fire-and-forget.
type RecordAttemptUseCase struct {
	repo      ratelimit.Repository
	auditRepo audit.Repository
	notifier  AlertNotifier
	policy    *ratelimit.Policy
	clk       clock.Clock
	logger    logger.Interface
}

func NewRecordAttemptUseCase(
	repo ratelimit.Repository,
	auditRepo audit.Repository,
	notifier AlertNotifier,
	policy *ratelimit.Policy,
	clk clock.Clock,
	logger logger.Interface,
) *RecordAttemptUseCase {
	return &RecordAttemptUseCase{
		repo:      repo,
		auditRepo: auditRepo,
		notifier:  notifier,
		policy:    policy,
		clk:       clk,
		logger:    logger,
	}
}

func (uc *RecordAttemptUseCase) Execute(ctx context.Context, cmd RecordAttemptCommand) (*dto.LimitStatusDTO, error) {
	now := uc.clk.Now()

	if cmd.Success {
		return uc.recordSuccess(ctx, cmd.Identifier, now)
	}
	return uc.recordFailure(ctx, cmd, now)
}

// recordSuccess clears all state for the identifier: window, attempts
// and any active block.
func (uc *RecordAttemptUseCase) recordSuccess(ctx context.Context, identifier string, now time.Time) (*dto.LimitStatusDTO, error) {
	if err := uc.repo.DeleteByIdentifier(ctx, identifier); err != nil {
		uc.logger.Errorw("failed to clear attempt record, failing open",
			"identifier", identifier, "error", err)
	}
	return decisionToDTO(uc.policy.Evaluate(nil, now)), nil
}

func (uc *RecordAttemptUseCase) recordFailure(ctx context.Context, cmd RecordAttemptCommand, now time.Time) (*dto.LimitStatusDTO, error) {
	record, err := uc.repo.RecordFailure(ctx, cmd.Identifier, now, uc.policy.Window())
	if err != nil {
		// Fail open: count this failure in memory only, as if no prior
		// failures were on file.
		uc.logger.Errorw("failed to persist attempt record, failing open",
			"identifier", cmd.Identifier, "error", err)
		record = ratelimit.NewAttemptRecord(cmd.Identifier)
		record.RegisterFailure(now, uc.policy.Window())
	}

	decision := uc.policy.ApplyAfterFailure(record, now, cmd.CaptchaSolved)
	if decision.NewlyBlocked {
		if err := uc.repo.Upsert(ctx, record); err != nil {
			uc.logger.Errorw("failed to persist block",
				"identifier", cmd.Identifier, "error", err)
		}
	}

	uc.appendAudit(cmd.Identifier, decision, now)
	if decision.NewlyBlocked {
		uc.fireAlert(cmd.Identifier, record.FailedAttempts(), record.BlockedUntil())
	}

	out := decisionToDTO(decision)
	out.Message = uc.buildMessage(record.FailedAttempts(), decision)
	return out, nil
}

// buildMessage returns a human-readable note when the CAPTCHA gate or a
// lockout tier is newly reached.
func (uc *RecordAttemptUseCase) buildMessage(attempts int, decision ratelimit.Decision) string {
	switch {
	case decision.NewlyBlocked:
		return fmt.Sprintf("Too many failed attempts. Try again in %s.",
			formatRetryAfter(decision.RetryAfter))
	case attempts == uc.policy.CaptchaThreshold():
		return "Too many failed attempts. Please complete the CAPTCHA to continue."
	default:
		return ""
	}
}

func (uc *RecordAttemptUseCase) appendAudit(identifier string, decision ratelimit.Decision, now time.Time) {
	reason := audit.ReasonLoginFailed
	switch {
	case decision.NewlyBlocked:
		reason = audit.ReasonBlocked
	case decision.RequiresCaptcha:
		reason = audit.ReasonCaptchaRequired
	}
	event := audit.NewAuthEvent(identifier, false, reason, now)

	goroutine.SafeGo(uc.logger, "ratelimit.audit", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uc.auditRepo.Append(ctx, event); err != nil {
			uc.logger.Warnw("failed to append auth event",
				"identifier", identifier, "reason", reason, "error", err)
		}
	})
}

func (uc *RecordAttemptUseCase) fireAlert(identifier string, attempts int, blockedUntil time.Time) {
	goroutine.SafeGo(uc.logger, "ratelimit.alert", func() {
		uc.notifier.NotifyBlock(identifier, attempts, blockedUntil)
	})
}

func formatRetryAfter(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return fmt.Sprintf("%d minutes", minutes)
}
