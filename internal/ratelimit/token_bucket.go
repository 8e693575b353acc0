package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens are kept in milli-tokens so fractional refill survives the integer reply.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (tonumber(nowData[1]) * 1000) + math.floor(tonumber(nowData[2]) / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta * rate))
end

local allowed = 0
if tokens >= 1000 then
  allowed = 1
  tokens = tokens - 1000
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens), now}
`

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from key. rate is tokens per second, burst the bucket size.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return nil, errors.New("rate limiter not configured")
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("rate limiter rate and burst must be positive")
	}

	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{key},
		rate,
		burst,
		int64(bucketTTL(rate, burst)/time.Millisecond),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 3 {
		return nil, errors.New("invalid rate limit script response")
	}

	allowed := res[0] == 1
	milliTokens := res[1]

	result := &RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(milliTokens / 1000),
	}
	if !allowed {
		missing := float64(1000-milliTokens) / 1000
		result.RetryAfter = time.Duration(math.Ceil(missing/rate*1000)) * time.Millisecond
	}
	return result, nil
}

// bucketTTL keeps an idle bucket long enough to refill completely, twice over.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
