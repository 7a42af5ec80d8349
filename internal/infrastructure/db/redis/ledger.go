package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLedgerTTL bounds how long a delivery is remembered.
const DefaultLedgerTTL = 24 * time.Hour

// DeliveryLedger remembers which account emails were already handed to the
// mail transport so a retried or replayed job is not sent twice.
// Key format: mail:<kind>:<sha256(token)>
type DeliveryLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryLedger wraps the given Redis client. A non-positive ttl uses DefaultLedgerTTL.
func NewDeliveryLedger(client *redis.Client, ttl time.Duration) *DeliveryLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &DeliveryLedger{client: client, ttl: ttl}
}

// Delivered reports whether the email of this kind carrying token was already sent.
func (l *DeliveryLedger) Delivered(ctx context.Context, kind, token string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(kind, token)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger check: %w", err)
	}
	return n > 0, nil
}

// MarkDelivered records a successful delivery.
func (l *DeliveryLedger) MarkDelivered(ctx context.Context, kind, token string) error {
	if err := l.client.Set(ctx, l.key(kind, token), time.Now().UTC().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("ledger mark: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (l *DeliveryLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// key hashes the token so live credentials never sit in Redis.
func (l *DeliveryLedger) key(kind, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("mail:%s:%s", kind, hex.EncodeToString(sum[:]))
}
