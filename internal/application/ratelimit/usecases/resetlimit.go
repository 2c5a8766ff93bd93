package usecases

import (
	"context"
	"fmt"
	"time"

	"clipforge/internal/domain/audit"
	"clipforge/internal/domain/ratelimit"
	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/goroutine"
	"clipforge/internal/shared/logger"
)

// ResetLimitUseCase unconditionally clears all rate-limit state for an
// identifier. Administrative escape hatch.
type ResetLimitUseCase struct {
	repo      ratelimit.Repository
	auditRepo audit.Repository
	clk       clock.Clock
	logger    logger.Interface
}

func NewResetLimitUseCase(repo ratelimit.Repository, auditRepo audit.Repository, clk clock.Clock, logger logger.Interface) *ResetLimitUseCase {
	return &ResetLimitUseCase{
		repo:      repo,
		auditRepo: auditRepo,
		clk:       clk,
		logger:    logger,
	}
}

func (uc *ResetLimitUseCase) Execute(ctx context.Context, identifier string) error {
	if err := uc.repo.DeleteByIdentifier(ctx, identifier); err != nil {
		return fmt.Errorf("failed to reset rate limit for %s: %w", identifier, err)
	}

	event := audit.NewAuthEvent(identifier, true, audit.ReasonReset, uc.clk.Now())
	goroutine.SafeGo(uc.logger, "ratelimit.audit", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uc.auditRepo.Append(ctx, event); err != nil {
			uc.logger.Warnw("failed to append reset event",
				"identifier", identifier, "error", err)
		}
	})

	uc.logger.Infow("rate limit reset", "identifier", identifier)
	return nil
}
