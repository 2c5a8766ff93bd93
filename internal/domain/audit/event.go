// Package audit defines the append-only trail of login attempt
// decisions. Writes are best-effort and must never affect the
// rate-limit verdict.
package audit

import (
	"context"
	"time"
)

// Reason classifies why an attempt was recorded.
type Reason string

const (
	ReasonLoginFailed     Reason = "login_failed"
	ReasonCaptchaRequired Reason = "captcha_required"
	ReasonBlocked         Reason = "blocked"
	ReasonReset           Reason = "reset"
)

// AuthEvent is one entry in the trail.
type AuthEvent struct {
	id         uint
	identifier string
	success    bool
	reason     Reason
	createdAt  time.Time
}

// NewAuthEvent creates an event stamped at now.
func NewAuthEvent(identifier string, success bool, reason Reason, now time.Time) *AuthEvent {
	return &AuthEvent{
		identifier: identifier,
		success:    success,
		reason:     reason,
		createdAt:  now,
	}
}

// RehydrateAuthEvent reconstructs an event from persisted state.
func RehydrateAuthEvent(id uint, identifier string, success bool, reason Reason, createdAt time.Time) *AuthEvent {
	return &AuthEvent{
		id:         id,
		identifier: identifier,
		success:    success,
		reason:     reason,
		createdAt:  createdAt,
	}
}

func (e *AuthEvent) ID() uint             { return e.id }
func (e *AuthEvent) Identifier() string   { return e.identifier }
func (e *AuthEvent) Success() bool        { return e.success }
func (e *AuthEvent) Reason() Reason       { return e.reason }
func (e *AuthEvent) CreatedAt() time.Time { return e.createdAt }

// SetID assigns the storage-generated primary key after an insert.
func (e *AuthEvent) SetID(id uint) { e.id = id }

// Repository is the append-only sink for auth events.
type Repository interface {
	Append(ctx context.Context, event *AuthEvent) error
	// ListByIdentifier returns the most recent events for an
	// identifier, newest first, for the admin inspection endpoint.
	ListByIdentifier(ctx context.Context, identifier string, limit int) ([]*AuthEvent, error)
}
