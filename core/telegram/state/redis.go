package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values in redis so they survive restarts
// and expire on their own.
type RedisStore[T any] struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store writing keys as "<prefix>:<userID>"; ttl <= 0 disables expiry.
func NewRedisStore[T any](rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStore[T] {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore[T]) key(userID int64) string {
	return r.prefix + ":" + strconv.FormatInt(userID, 10)
}

// Get loads the session, returning an idle session when the key is absent.
func (r *RedisStore[T]) Get(ctx context.Context, userID int64) (Session[T], error) {
	raw, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idle[T](), nil
	}
	if err != nil {
		return idle[T](), fmt.Errorf("state: redis get %d: %w", userID, err)
	}
	var s Session[T]
	if err := json.Unmarshal(raw, &s); err != nil {
		return idle[T](), fmt.Errorf("state: decode session %d: %w", userID, err)
	}
	return s, nil
}

// Put stores the session and refreshes its TTL. An idle session deletes the key.
func (r *RedisStore[T]) Put(ctx context.Context, userID int64, s Session[T]) error {
	if s.Idle() {
		return r.Clear(ctx, userID)
	}
	s.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("state: encode session %d: %w", userID, err)
	}
	if err := r.rdb.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set %d: %w", userID, err)
	}
	return nil
}

// Clear deletes the user's session key.
func (r *RedisStore[T]) Clear(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("state: redis del %d: %w", userID, err)
	}
	return nil
}

// InProgress reports whether a session key exists for the user.
// Redis errors are treated as "not in progress" so routing falls back to commands.
func (r *RedisStore[T]) InProgress(ctx context.Context, userID int64) bool {
	n, err := r.rdb.Exists(ctx, r.key(userID)).Result()
	return err == nil && n > 0
}
