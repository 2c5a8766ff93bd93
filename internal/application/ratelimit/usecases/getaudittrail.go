package usecases

import (
	"context"
	"fmt"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/domain/audit"
	"clipforge/internal/shared/logger"
)

const defaultAuditTrailLimit = 50

// GetAuditTrailUseCase lists the recent auth events for an identifier,
// newest first. Backs the admin inspection endpoint.
type GetAuditTrailUseCase struct {
	auditRepo audit.Repository
	logger    logger.Interface
}

func NewGetAuditTrailUseCase(auditRepo audit.Repository, logger logger.Interface) *GetAuditTrailUseCase {
	return &GetAuditTrailUseCase{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (uc *GetAuditTrailUseCase) Execute(ctx context.Context, identifier string, limit int) ([]*dto.AuthEventDTO, error) {
	if limit <= 0 {
		limit = defaultAuditTrailLimit
	}

	events, err := uc.auditRepo.ListByIdentifier(ctx, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}

	out := make([]*dto.AuthEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, &dto.AuthEventDTO{
			Identifier: event.Identifier(),
			Success:    event.Success(),
			Reason:     string(event.Reason()),
			CreatedAt:  event.CreatedAt(),
		})
	}
	return out, nil
}
