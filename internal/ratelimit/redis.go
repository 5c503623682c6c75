package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript checks and advances a window counter atomically. The key
// is created with the window TTL on first use; a denied attempt leaves
// the counter untouched.
var takeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local ceiling = tonumber(ARGV[1])
if current >= ceiling then
  return {0, current, redis.call('PTTL', KEYS[1])}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, current, redis.call('PTTL', KEYS[1])}
`)

// RedisStore keeps window counters in Redis so multiple gateway
// replicas share the same windows.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed window store.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "agentward:rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Take implements WindowStore.
func (s *RedisStore) Take(ctx context.Context, agentID string, ceiling int64, windowDur time.Duration, now time.Time) (Result, error) {
	key := fmt.Sprintf("%s:%s", s.prefix, agentID)

	raw, err := takeScript.Run(ctx, s.rdb, []string{key}, ceiling, windowDur.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis take: %w", err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %T", raw)
	}

	allowed, _ := vals[0].(int64)
	current, _ := vals[1].(int64)
	ttlMillis, _ := vals[2].(int64)

	resetAt := now.Add(windowDur)
	if ttlMillis > 0 {
		resetAt = now.Add(time.Duration(ttlMillis) * time.Millisecond)
	}

	return Result{
		Allowed: allowed == 1,
		Current: current,
		Limit:   ceiling,
		ResetAt: resetAt,
	}, nil
}
