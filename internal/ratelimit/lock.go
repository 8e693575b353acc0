package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	errLeaseStoreMissing = errors.New("ratelimit: lease store not configured")
	errLeaseKeyEmpty     = errors.New("ratelimit: lease key is empty")
	errLeaseTTL          = errors.New("ratelimit: lease ttl must be positive")
)

// Compare-and-delete: a lease is dropped only by the owner that claimed it.
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// leaseStore hands out owner tokens for short-lived redis keys.
type leaseStore struct {
	client *redis.Client
}

func newLeaseStore(client *redis.Client) *leaseStore {
	if client == nil {
		return nil
	}
	return &leaseStore{client: client}
}

// claim returns the owner token and whether the key was free.
func (s *leaseStore) claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case s == nil || s.client == nil:
		return "", false, errLeaseStoreMissing
	case key == "":
		return "", false, errLeaseKeyEmpty
	case ttl <= 0:
		return "", false, errLeaseTTL
	}

	owner := uuid.NewString()
	err := s.client.SetArgs(ctx, key, owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func (s *leaseStore) release(ctx context.Context, key, owner string) error {
	if s == nil || s.client == nil || key == "" || owner == "" {
		return nil
	}
	return releaseLease.Run(ctx, s.client, []string{key}, owner).Err()
}
