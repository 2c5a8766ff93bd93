package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clipforge/internal/domain/audit"
	"clipforge/internal/infrastructure/persistence/models"
	"clipforge/internal/shared/logger"
)

// AuthEventRepository implements audit.Repository on gorm. Rows are
// append-only; nothing here updates or deletes.
type AuthEventRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewAuthEventRepository creates a new AuthEventRepository
func NewAuthEventRepository(db *gorm.DB, logger logger.Interface) audit.Repository {
	return &AuthEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AuthEventRepository) Append(ctx context.Context, event *audit.AuthEvent) error {
	model := &models.AuthEventModel{
		Identifier: event.Identifier(),
		Success:    event.Success(),
		Reason:     string(event.Reason()),
		CreatedAt:  event.CreatedAt(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append auth event: %w", err)
	}

	event.SetID(model.ID)
	return nil
}

func (r *AuthEventRepository) ListByIdentifier(ctx context.Context, identifier string, limit int) ([]*audit.AuthEvent, error) {
	var modelList []*models.AuthEventModel

	err := r.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}

	out := make([]*audit.AuthEvent, 0, len(modelList))
	for _, model := range modelList {
		out = append(out, audit.RehydrateAuthEvent(
			model.ID,
			model.Identifier,
			model.Success,
			audit.Reason(model.Reason),
			model.CreatedAt,
		))
	}
	return out, nil
}
