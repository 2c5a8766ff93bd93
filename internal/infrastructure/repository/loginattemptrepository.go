package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clipforge/internal/domain/ratelimit"
	"clipforge/internal/infrastructure/persistence/models"
	"clipforge/internal/shared/logger"
)

// LoginAttemptRepository implements ratelimit.Repository on gorm.
type LoginAttemptRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *gorm.DB, logger logger.Interface) ratelimit.Repository {
	return &LoginAttemptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *LoginAttemptRepository) GetByIdentifier(ctx context.Context, identifier string) (*ratelimit.AttemptRecord, error) {
	var model models.LoginAttemptModel

	err := r.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ratelimit.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt record: %w", err)
	}

	return toDomainRecord(&model), nil
}

func (r *LoginAttemptRepository) Upsert(ctx context.Context, record *ratelimit.AttemptRecord) error {
	model := toAttemptModel(record)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"failed_attempts", "first_failed_at", "blocked_until", "last_attempt_at", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert attempt record: %w", err)
	}

	if record.ID() == 0 {
		record.SetID(model.ID)
	}
	return nil
}

// RecordFailure applies a failure in one conditional UPDATE so two
// concurrent attempts from the same identifier cannot read the same
// stale counter and undercount. A window that expired before now is
// restarted at 1, otherwise the counter increments in place.
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, identifier string, now time.Time, window time.Duration) (*ratelimit.AttemptRecord, error) {
	cutoff := now.Add(-window)

	res := r.db.WithContext(ctx).Model(&models.LoginAttemptModel{}).
		Where("identifier = ?", identifier).
		Updates(map[string]interface{}{
			"failed_attempts": gorm.Expr(
				"CASE WHEN first_failed_at IS NULL OR first_failed_at < ? THEN 1 ELSE failed_attempts + 1 END", cutoff),
			"first_failed_at": gorm.Expr(
				"CASE WHEN first_failed_at IS NULL OR first_failed_at < ? THEN ? ELSE first_failed_at END", cutoff, now),
			"last_attempt_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record failure: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		model := &models.LoginAttemptModel{
			Identifier:     identifier,
			FailedAttempts: 1,
			FirstFailedAt:  &now,
			LastAttemptAt:  now,
		}
		// A concurrent first failure may have inserted the row between
		// the UPDATE and this INSERT; fold into an increment then.
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identifier"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"failed_attempts": gorm.Expr("failed_attempts + 1"),
				"last_attempt_at": now,
			}),
		}).Create(model).Error
		if err != nil {
			return nil, fmt.Errorf("failed to insert attempt record: %w", err)
		}
	}

	return r.GetByIdentifier(ctx, identifier)
}

func (r *LoginAttemptRepository) DeleteByIdentifier(ctx context.Context, identifier string) error {
	err := r.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&models.LoginAttemptModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete attempt record: %w", err)
	}
	return nil
}

func toDomainRecord(model *models.LoginAttemptModel) *ratelimit.AttemptRecord {
	var firstFailedAt, blockedUntil time.Time
	if model.FirstFailedAt != nil {
		firstFailedAt = *model.FirstFailedAt
	}
	if model.BlockedUntil != nil {
		blockedUntil = *model.BlockedUntil
	}
	return ratelimit.RehydrateAttemptRecord(
		model.ID,
		model.Identifier,
		model.FailedAttempts,
		firstFailedAt,
		blockedUntil,
		model.LastAttemptAt,
	)
}

func toAttemptModel(record *ratelimit.AttemptRecord) *models.LoginAttemptModel {
	model := &models.LoginAttemptModel{
		ID:             record.ID(),
		Identifier:     record.Identifier(),
		FailedAttempts: record.FailedAttempts(),
		LastAttemptAt:  record.LastAttemptAt(),
	}
	if !record.FirstFailedAt().IsZero() {
		t := record.FirstFailedAt()
		model.FirstFailedAt = &t
	}
	if !record.BlockedUntil().IsZero() {
		t := record.BlockedUntil()
		model.BlockedUntil = &t
	}
	return model
}
