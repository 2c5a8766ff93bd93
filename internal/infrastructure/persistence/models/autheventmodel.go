package models

import "time"

// AuthEventModel is one append-only audit row for a login attempt
// decision.
type AuthEventModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Identifier string    `gorm:"type:varchar(64);index;not null"`
	Success    bool      `gorm:"not null"`
	Reason     string    `gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides the gorm default
func (AuthEventModel) TableName() string {
	return "auth_events"
}
