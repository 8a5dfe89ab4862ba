package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationPrefix = "auth:revoked:"

// RedisRevocations stores, per subject, the unix second at which all of the
// subject's tokens were revoked. Tokens issued at or before it are rejected.
type RedisRevocations struct {
	rdb *redis.Client
	now func() time.Time
}

var _ Revocations = (*RedisRevocations)(nil)

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb, now: time.Now}
}

// Revoke invalidates every token already issued to subject. ttl should cover
// the longest token lifetime.
func (r *RedisRevocations) Revoke(ctx context.Context, subject string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revocationPrefix+subject, r.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", subject, err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, subject string, issuedAt time.Time) (bool, error) {
	v, err := r.rdb.Get(ctx, revocationPrefix+subject).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", subject, err)
	}
	at, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation %s: %w", subject, err)
	}
	return issuedAt.Unix() <= at, nil
}
