package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// blockAlertKeyPrefix namespaces alert cooldown keys
	blockAlertKeyPrefix = "ratelimit_alert:"
	// DefaultAlertCooldown suppresses repeat alerts for an identifier
	// that keeps re-crossing lockout tiers.
	DefaultAlertCooldown = 30 * time.Minute
)

// BlockAlertDeduplicator provides Redis-based alert deduplication so a
// single abusive identifier cannot flood the alert inbox.
type BlockAlertDeduplicator struct {
	client *redis.Client
}

// NewBlockAlertDeduplicator creates a new BlockAlertDeduplicator instance
func NewBlockAlertDeduplicator(client *redis.Client) *BlockAlertDeduplicator {
	return &BlockAlertDeduplicator{client: client}
}

func (d *BlockAlertDeduplicator) buildKey(identifier string) string {
	return blockAlertKeyPrefix + identifier
}

// TryAcquire atomically checks and acquires the alert cooldown using
// SetNX. Returns true when the alert should be sent, false when the
// identifier is still in cooldown. SetNX keeps this race-free across
// multiple service instances.
func (d *BlockAlertDeduplicator) TryAcquire(ctx context.Context, identifier string, ttl time.Duration) (bool, error) {
	acquired, err := d.client.SetNX(ctx, d.buildKey(identifier), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert cooldown: %w", err)
	}
	return acquired, nil
}

// Clear drops the cooldown for an identifier, typically after an admin
// reset.
func (d *BlockAlertDeduplicator) Clear(ctx context.Context, identifier string) error {
	if err := d.client.Del(ctx, d.buildKey(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to clear alert cooldown: %w", err)
	}
	return nil
}
