package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/commcredit/internal/config"
	"go.uber.org/zap"
)

const (
	keyDeductTenant = "commcredit:ratelimit:deduct:%s"
	keyTopUpIdemKey = "commcredit:idempotency:topup:%s:%s"

	maxIdempotencyKeyLength = 128
)

// DeductLimiter throttles deductions per tenant. A nil limiter allows everything.
type DeductLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewDeductLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *DeductLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil
	}
	if client == nil {
		log.Warn("rate limiting enabled without REDIS_ADDR; deductions are not throttled")
		return nil
	}
	if limitCfg.DeductTenantRate <= 0 || limitCfg.DeductTenantBurst <= 0 {
		log.Warn("deduct rate limit must be positive; deductions are not throttled")
		return nil
	}
	return &DeductLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.DeductTenantRate,
		burst:  limitCfg.DeductTenantBurst,
	}
}

func (l *DeductLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *DeductLimiter) AllowTenant(ctx context.Context, tenantID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyDeductTenant, strings.TrimSpace(tenantID)), l.rate, l.burst)
}

// TopUpIdempotency claims Idempotency-Key values so a retried grant is stored once.
// A claim is kept after success and released after failure so the caller may retry.
type TopUpIdempotency struct {
	leases *leaseStore
	ttl    time.Duration
}

func NewTopUpIdempotency(cfg config.Config, client *redis.Client) *TopUpIdempotency {
	if client == nil {
		return nil
	}
	ttl := time.Duration(cfg.RateLimit.TopUpIdempotencyTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TopUpIdempotency{leases: newLeaseStore(client), ttl: ttl}
}

func (g *TopUpIdempotency) Enabled() bool {
	return g != nil && g.leases != nil
}

// Claim reports false when the key was already used for this tenant within the TTL.
func (g *TopUpIdempotency) Claim(ctx context.Context, tenantID, key string) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	if strings.TrimSpace(key) == "" {
		return "", true, nil
	}
	return g.leases.claim(ctx, idempotencyKey(tenantID, key), g.ttl)
}

func (g *TopUpIdempotency) Release(ctx context.Context, tenantID, key, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.leases.release(ctx, idempotencyKey(tenantID, key), token)
}

func idempotencyKey(tenantID, key string) string {
	key = strings.TrimSpace(key)
	if len(key) > maxIdempotencyKeyLength {
		key = key[:maxIdempotencyKeyLength]
	}
	return fmt.Sprintf(keyTopUpIdemKey, strings.TrimSpace(tenantID), key)
}
