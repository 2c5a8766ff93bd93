package models

import "time"

// LoginAttemptModel is the persisted sliding-window state, one row per
// identifier.
type LoginAttemptModel struct {
	ID             uint       `gorm:"primaryKey;autoIncrement"`
	Identifier     string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	FailedAttempts int        `gorm:"not null;default:0"`
	FirstFailedAt  *time.Time `gorm:"index"`
	BlockedUntil   *time.Time `gorm:"index"`
	LastAttemptAt  time.Time  `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the gorm default
func (LoginAttemptModel) TableName() string {
	return "login_attempts"
}
