package handlers

import (
	"context"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/application/ratelimit/usecases"
	"clipforge/internal/infrastructure/auth"
)

// Use case interfaces for RateLimitHandler - enables unit testing with mocks.

type checkLimitUseCase interface {
	Execute(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error)
}

type recordAttemptUseCase interface {
	Execute(ctx context.Context, cmd usecases.RecordAttemptCommand) (*dto.LimitStatusDTO, error)
}

type resetLimitUseCase interface {
	Execute(ctx context.Context, identifier string) error
}

type getAuditTrailUseCase interface {
	Execute(ctx context.Context, identifier string, limit int) ([]*dto.AuthEventDTO, error)
}

// tokenVerifier is the subset of the JWT service the handler needs to
// guard the reset action.
type tokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}
