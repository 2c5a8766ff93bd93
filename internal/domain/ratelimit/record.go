package ratelimit

import "time"

// AttemptRecord tracks login failures for a single identifier (source
// IP) over a sliding window. A zero firstFailedAt or blockedUntil means
// "absent". Invariant: failedAttempts == 0 implies no block is set.
type AttemptRecord struct {
	id             uint
	identifier     string
	failedAttempts int
	firstFailedAt  time.Time
	blockedUntil   time.Time
	lastAttemptAt  time.Time
}

// NewAttemptRecord creates an empty record for an identifier. It is
// persisted only once the first failure is registered.
func NewAttemptRecord(identifier string) *AttemptRecord {
	return &AttemptRecord{identifier: identifier}
}

// RehydrateAttemptRecord reconstructs a record from persisted state.
func RehydrateAttemptRecord(id uint, identifier string, failedAttempts int, firstFailedAt, blockedUntil, lastAttemptAt time.Time) *AttemptRecord {
	return &AttemptRecord{
		id:             id,
		identifier:     identifier,
		failedAttempts: failedAttempts,
		firstFailedAt:  firstFailedAt,
		blockedUntil:   blockedUntil,
		lastAttemptAt:  lastAttemptAt,
	}
}

func (r *AttemptRecord) ID() uint                 { return r.id }
func (r *AttemptRecord) Identifier() string       { return r.identifier }
func (r *AttemptRecord) FailedAttempts() int      { return r.failedAttempts }
func (r *AttemptRecord) FirstFailedAt() time.Time { return r.firstFailedAt }
func (r *AttemptRecord) BlockedUntil() time.Time  { return r.blockedUntil }
func (r *AttemptRecord) LastAttemptAt() time.Time { return r.lastAttemptAt }

// SetID assigns the storage-generated primary key after an insert.
func (r *AttemptRecord) SetID(id uint) { r.id = id }

// IsBlocked reports whether a lockout is active at now.
func (r *AttemptRecord) IsBlocked(now time.Time) bool {
	return !r.blockedUntil.IsZero() && r.blockedUntil.After(now)
}

// RetryAfter returns how long the identifier must wait before the
// active lockout expires. Zero when not blocked.
func (r *AttemptRecord) RetryAfter(now time.Time) time.Duration {
	if !r.IsBlocked(now) {
		return 0
	}
	return r.blockedUntil.Sub(now)
}

// WindowExpired reports whether the sliding window has lapsed, meaning
// the next failure restarts counting at 1.
func (r *AttemptRecord) WindowExpired(now time.Time, window time.Duration) bool {
	if r.firstFailedAt.IsZero() {
		return true
	}
	return now.Sub(r.firstFailedAt) > window
}

// RegisterFailure counts a failed attempt, starting a fresh window when
// the previous one has expired.
func (r *AttemptRecord) RegisterFailure(now time.Time, window time.Duration) {
	if r.WindowExpired(now, window) {
		r.failedAttempts = 1
		r.firstFailedAt = now
	} else {
		r.failedAttempts++
	}
	r.lastAttemptAt = now
}

// Block sets the lockout expiry d from now.
func (r *AttemptRecord) Block(now time.Time, d time.Duration) {
	r.blockedUntil = now.Add(d)
}
