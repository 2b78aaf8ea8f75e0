package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments a counter and sets its expiry on the first hit in a
// single server-side step, so a crash can never leave a counter without TTL.
var incrScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RedisCounter is the distributed Counter.
type RedisCounter struct {
	client  redis.Scripter
	prefix  string
	timeout time.Duration
}

// NewRedisCounter wraps client. Keys are namespaced with prefix and every
// call is bounded by timeout so an unreachable server fails fast.
func NewRedisCounter(client redis.Scripter, prefix string, timeout time.Duration) *RedisCounter {
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &RedisCounter{client: client, prefix: prefix, timeout: timeout}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := incrScript.Run(ctx, c.client, []string{c.prefix + key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return n, nil
}
