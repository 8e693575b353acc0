package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
)

// generationTTL outlives any billing window so a bumped generation is never forgotten
// while its period is still current.
const generationTTL = 40 * 24 * time.Hour

// CreditKey addresses one cached balance.
type CreditKey struct {
	TenantID    snowflake.ID
	Channel     creditdomain.Channel
	PeriodStart time.Time
}

func (k CreditKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.TenantID.String(), k.Channel, k.PeriodStart.Unix())
}

// CreditCache holds derived balances. Every key carries a generation that Invalidate
// bumps; Set only stores when the caller's generation is still current, so a reader that
// started before a mutation cannot repopulate a stale balance after it.
type CreditCache interface {
	Get(ctx context.Context, key CreditKey) (creditdomain.Balance, bool, error)
	Generation(ctx context.Context, key CreditKey) (uint64, error)
	Set(ctx context.Context, key CreditKey, balance creditdomain.Balance, generation uint64, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, key CreditKey) error
}

type MemoryCreditCache struct {
	mu          sync.Mutex
	entries     *TTLCache[string, creditdomain.Balance]
	generations *TTLCache[string, uint64]
	sets        int
}

func NewMemoryCreditCache() *MemoryCreditCache {
	return NewMemoryCreditCacheWithClock(time.Now)
}

func NewMemoryCreditCacheWithClock(now func() time.Time) *MemoryCreditCache {
	return &MemoryCreditCache{
		entries:     NewTTLCacheWithClock[string, creditdomain.Balance](now),
		generations: NewTTLCacheWithClock[string, uint64](now),
	}
}

func (c *MemoryCreditCache) Get(_ context.Context, key CreditKey) (creditdomain.Balance, bool, error) {
	balance, ok := c.entries.Get(key.String())
	return balance, ok, nil
}

func (c *MemoryCreditCache) Generation(_ context.Context, key CreditKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, _ := c.generations.Get(key.String())
	return gen, nil
}

func (c *MemoryCreditCache) Set(_ context.Context, key CreditKey, balance creditdomain.Balance, generation uint64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if current, _ := c.generations.Get(k); current != generation {
		return false, nil
	}
	c.entries.Set(k, balance, ttl)

	// Expired balances are otherwise only dropped when read again.
	c.sets++
	if c.sets%1024 == 0 {
		c.entries.DeleteExpired()
		c.generations.DeleteExpired()
	}
	return true, nil
}

func (c *MemoryCreditCache) Invalidate(_ context.Context, key CreditKey) error {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(k)
	gen, _ := c.generations.Get(k)
	c.generations.Set(k, gen+1, generationTTL)
	return nil
}

// NoopCreditCache always misses; every read goes to the store.
type NoopCreditCache struct{}

func (NoopCreditCache) Get(context.Context, CreditKey) (creditdomain.Balance, bool, error) {
	return creditdomain.Balance{}, false, nil
}

func (NoopCreditCache) Generation(context.Context, CreditKey) (uint64, error) { return 0, nil }

func (NoopCreditCache) Set(context.Context, CreditKey, creditdomain.Balance, uint64, time.Duration) (bool, error) {
	return false, nil
}

func (NoopCreditCache) Invalidate(context.Context, CreditKey) error { return nil }
