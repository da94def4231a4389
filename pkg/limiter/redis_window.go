package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counting and TTL assignment run as one script so concurrent callers on the same
// key are serialized by Redis.
var windowScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return {0, redis.call('PTTL', KEYS[1])}
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, redis.call('PTTL', KEYS[1])}
`)

// RedisWindow keeps counters in Redis so limits hold across instances.
type RedisWindow struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisWindow(client redis.UniversalClient, prefix string) *RedisWindow {
	return &RedisWindow{
		client: client,
		prefix: prefix,
	}
}

func (l *RedisWindow) Check(ctx context.Context, key string, max int, window time.Duration) (Result, error) {
	const op = "limiter.RedisWindow.Check"

	res, err := windowScript.Run(ctx, l.client, []string{l.prefix + key}, max, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%s: run window script failed: %w", op, err)
	}
	if len(res) != 2 {
		return Result{}, fmt.Errorf("%s: unexpected script reply length %d", op, len(res))
	}

	if res[0] == 1 {
		return Result{Allowed: true}, nil
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = window
	}

	return Result{Allowed: false, RetryAfter: retryAfter}, nil
}
