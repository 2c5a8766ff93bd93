package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when no attempt record exists for an
// identifier.
var ErrRecordNotFound = errors.New("attempt record not found")

// Repository persists one AttemptRecord per identifier.
type Repository interface {
	// GetByIdentifier retrieves the record for an identifier, or
	// ErrRecordNotFound.
	GetByIdentifier(ctx context.Context, identifier string) (*AttemptRecord, error)

	// Upsert writes the record, inserting on first failure and
	// updating on conflict with the identifier's existing row.
	Upsert(ctx context.Context, record *AttemptRecord) error

	// RecordFailure applies a failure as a single atomic statement:
	// restart the window when it has expired at now, otherwise
	// increment the counter. It returns the resulting record so
	// concurrent attempts from the same identifier cannot undercount
	// each other.
	RecordFailure(ctx context.Context, identifier string, now time.Time, window time.Duration) (*AttemptRecord, error)

	// DeleteByIdentifier clears all state for an identifier.
	DeleteByIdentifier(ctx context.Context, identifier string) error
}
