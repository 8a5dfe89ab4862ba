package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "loanflow:idemp:"

// replayEntry is what the idempotency middleware keeps per request id.
// InProgress entries hold the claim until the handler finishes.
type replayEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e replayEntry) replayable() bool { return !e.InProgress && e.Code != 0 && len(e.Body) > 0 }

type replayStore struct {
	rdb     *redis.Client
	lockTTL time.Duration
}

// replayKey scopes a request id to the route and the caller; ids are
// compared case-insensitively.
func replayKey(method, route, subject, requestID string) string {
	return replayKeyPrefix + strings.ToLower(method) + ":" + route + ":" + subject + ":" + strings.ToLower(requestID)
}

// claim stores e under key only if nothing is there yet.
func (s replayStore) claim(ctx context.Context, key string, e replayEntry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, s.lockTTL).Result()
}

func (s replayStore) load(ctx context.Context, key string) (replayEntry, error) {
	var e replayEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return e, fmt.Errorf("decode replay entry: %w", err)
	}
	return e, nil
}

func (s replayStore) save(ctx context.Context, key string, e replayEntry, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

func hashBody(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
