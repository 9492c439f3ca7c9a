package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// hitScript increments the counter and starts the window on the first hit.
// Once the limit is reached the counter is left alone so that denied requests
// do not inflate it. Returns {count, ttl_ms}.
var hitScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[2]) then
	return {current + 1, redis.call("PTTL", KEYS[1])}
end
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// RedisStore shares the rate table between instances. Windows expire through
// key TTLs, so no sweep is required.
type RedisStore struct {
	client redis.Scripter
	now    func() time.Time
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration, limit int) (int, time.Time, error) {
	res, err := hitScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, window.Milliseconds(), limit).Int64Slice()

	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}

	ttl := time.Duration(res[1]) * time.Millisecond

	if ttl < 0 {
		ttl = window
	}

	return int(res[0]), s.now().Add(ttl), nil
}
