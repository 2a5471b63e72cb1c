package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docling-graph/core/internal/completer"
)

// rpmScript atomically increments a per-minute request counter and
// returns whether the call is allowed, the same INCR+EXPIRE-under-Lua
// pattern coderisk's internal/llm/rate_limiter.go uses for its shared
// Redis-backed RPM/TPM/RPD gates.
const rpmScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = redis.call("INCR", key)
if count == 1 then
  redis.call("EXPIRE", key, window)
end
if count > limit then
  return 0
end
return 1
`

// RedisLimited wraps a JsonCompleter with a Redis-backed RPM gate shared
// across multiple orchestrator processes against one provider quota
// (SPEC_FULL §3 "optional cross-process limiter").
type RedisLimited struct {
	inner  completer.JsonCompleter
	rdb    *redis.Client
	script *redis.Script
	rpm    int64
	keyPfx string
}

// NewRedisLimited constructs a cross-process limiter. keyPrefix namespaces
// the Redis keys so multiple providers/deployments can share one Redis
// instance without clobbering each other's counters.
func NewRedisLimited(inner completer.JsonCompleter, redisURL string, rpm int64, keyPrefix string) (*RedisLimited, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	return &RedisLimited{
		inner:  inner,
		rdb:    redis.NewClient(opts),
		script: redis.NewScript(rpmScript),
		rpm:    rpm,
		keyPfx: keyPrefix,
	}, nil
}

func (l *RedisLimited) Complete(ctx context.Context, prompt completer.Prompt, schema completer.JsonSchema, params completer.Params) (completer.Result, error) {
	minute := time.Now().UTC().Format("200601021504")
	key := fmt.Sprintf("%s:rpm:%s", l.keyPfx, minute)

	allowed, err := l.script.Run(ctx, l.rdb, []string{key}, l.rpm, 120).Int()
	if err != nil {
		return completer.Result{}, fmt.Errorf("rate limit check: %w", err)
	}
	if allowed == 0 {
		return completer.Result{}, fmt.Errorf("rate limit exceeded: %d requests/minute", l.rpm)
	}

	return l.inner.Complete(ctx, prompt, schema, params)
}

func (l *RedisLimited) ContextLimit() int { return l.inner.ContextLimit() }

// Close releases the underlying Redis connection pool.
func (l *RedisLimited) Close() error { return l.rdb.Close() }
