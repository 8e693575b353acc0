package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var periodStart = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func testKey(channel creditdomain.Channel) CreditKey {
	return CreditKey{TenantID: snowflake.ID(42), Channel: channel, PeriodStart: periodStart}
}

func testBalance(available int64) creditdomain.Balance {
	return creditdomain.Balance{
		TenantID:    42,
		Channel:     creditdomain.ChannelSMS,
		PeriodStart: periodStart,
		PeriodEnd:   periodStart.AddDate(0, 1, 0),
		Base:        100,
		Used:        100 - available,
		Available:   available,
	}
}

func newRedisCache(t *testing.T) (*RedisCreditCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCreditCache(client), mr
}

func TestCreditKeyString(t *testing.T) {
	assert.Equal(t, "42|sms|1709251200", testKey(creditdomain.ChannelSMS).String())
}

// Both backends must honor the same generation contract.
func TestCreditCacheContract(t *testing.T) {
	backends := map[string]func(t *testing.T) CreditCache{
		"memory": func(t *testing.T) CreditCache { return NewMemoryCreditCache() },
		"redis": func(t *testing.T) CreditCache {
			c, _ := newRedisCache(t)
			return c
		},
	}

	for name, build := range backends {
		t.Run(name+"/set then get", func(t *testing.T) {
			c := build(t)
			ctx := context.Background()
			key := testKey(creditdomain.ChannelSMS)

			gen, err := c.Generation(ctx, key)
			require.NoError(t, err)
			stored, err := c.Set(ctx, key, testBalance(80), gen, time.Minute)
			require.NoError(t, err)
			assert.True(t, stored)

			got, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.EqualValues(t, 80, got.Available)
			assert.True(t, got.PeriodStart.Equal(periodStart))
		})

		t.Run(name+"/stale generation is rejected", func(t *testing.T) {
			c := build(t)
			ctx := context.Background()
			key := testKey(creditdomain.ChannelSMS)

			gen, err := c.Generation(ctx, key)
			require.NoError(t, err)

			// A mutation lands between the reader's store read and its cache write.
			require.NoError(t, c.Invalidate(ctx, key))

			stored, err := c.Set(ctx, key, testBalance(100), gen, time.Minute)
			require.NoError(t, err)
			assert.False(t, stored)

			_, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run(name+"/invalidate drops entry", func(t *testing.T) {
			c := build(t)
			ctx := context.Background()
			key := testKey(creditdomain.ChannelEmail)

			_, err := c.Set(ctx, key, testBalance(10), 0, time.Minute)
			require.NoError(t, err)
			require.NoError(t, c.Invalidate(ctx, key))

			_, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			gen, err := c.Generation(ctx, key)
			require.NoError(t, err)
			assert.EqualValues(t, 1, gen)
		})

		t.Run(name+"/zero ttl disables caching", func(t *testing.T) {
			c := build(t)
			ctx := context.Background()
			key := testKey(creditdomain.ChannelVoice)

			stored, err := c.Set(ctx, key, testBalance(10), 0, 0)
			require.NoError(t, err)
			assert.False(t, stored)
		})

		t.Run(name+"/keys are independent", func(t *testing.T) {
			c := build(t)
			ctx := context.Background()

			_, err := c.Set(ctx, testKey(creditdomain.ChannelSMS), testBalance(10), 0, time.Minute)
			require.NoError(t, err)
			require.NoError(t, c.Invalidate(ctx, testKey(creditdomain.ChannelWhatsApp)))

			_, ok, err := c.Get(ctx, testKey(creditdomain.ChannelSMS))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestMemoryCreditCacheExpires(t *testing.T) {
	now := periodStart
	c := NewMemoryCreditCacheWithClock(func() time.Time { return now })
	ctx := context.Background()
	key := testKey(creditdomain.ChannelSMS)

	_, err := c.Set(ctx, key, testBalance(5), 0, 30*time.Second)
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCreditCacheTTLAndKeys(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	key := testKey(creditdomain.ChannelSMS)

	_, err := c.Set(ctx, key, testBalance(5), 0, 30*time.Second)
	require.NoError(t, err)
	require.True(t, mr.Exists("commcredit:credit:{42|sms|1709251200}"))

	mr.FastForward(31 * time.Second)
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Invalidate(ctx, key))
	assert.Greater(t, mr.TTL("commcredit:credit:{42|sms|1709251200}:gen"), time.Duration(0))
}

func TestRedisCreditCacheReportsConnectionErrors(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), testKey(creditdomain.ChannelSMS))
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background(), testKey(creditdomain.ChannelSMS)))
}

func TestNoopCreditCacheAlwaysMisses(t *testing.T) {
	c := NoopCreditCache{}
	ctx := context.Background()
	key := testKey(creditdomain.ChannelSMS)

	stored, err := c.Set(ctx, key, testBalance(1), 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
