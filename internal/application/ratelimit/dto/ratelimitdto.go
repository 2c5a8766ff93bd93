// Package dto defines the wire shapes for the rate-limit service. Field
// names follow the public API contract consumed by the web client.
package dto

import "time"

// LimitStatusDTO is the response body for check and record_attempt.
type LimitStatusDTO struct {
	Allowed                  bool       `json:"allowed"`
	Blocked                  bool       `json:"blocked"`
	BlockedUntil             *time.Time `json:"blockedUntil,omitempty"`
	RetryAfterSeconds        *int       `json:"retryAfterSeconds,omitempty"`
	RemainingAttempts        *int       `json:"remainingAttempts,omitempty"`
	RequiresCaptcha          *bool      `json:"requiresCaptcha,omitempty"`
	CaptchaAttemptsRemaining *int       `json:"captchaAttemptsRemaining,omitempty"`
	Message                  string     `json:"message,omitempty"`
}

// AuthEventDTO is one audit trail entry.
type AuthEventDTO struct {
	Identifier string    `json:"identifier"`
	Success    bool      `json:"success"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}
