package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrScript counts an attempt and starts the window on the first one.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares windows between instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedisLimiter namespaces its counters under prefix.
func NewRedisLimiter(client *redis.Client, cfg Config, prefix string) *RedisLimiter {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	if prefix == "" {
		prefix = "throttle:login"
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		prefix: prefix,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	res, err := incrScript.Run(ctx, l.client, []string{redisKey}, l.cfg.Window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis throttle: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Decision{}, fmt.Errorf("redis throttle: unexpected reply %v", res)
	}
	count, ok1 := vals[0].(int64)
	ttl, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, fmt.Errorf("redis throttle: unexpected reply %v", res)
	}

	d := Decision{
		Limit:   l.cfg.Limit,
		ResetIn: time.Duration(ttl) * time.Millisecond,
	}
	if count > int64(l.cfg.Limit) {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = l.cfg.Limit - int(count)
	return d, nil
}

// Reset clears the window for a key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}

var _ Limiter = (*RedisLimiter)(nil)
