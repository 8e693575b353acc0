package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
)

const (
	keyCreditBalance    = "commcredit:credit:{%s}"
	keyCreditGeneration = "commcredit:credit:{%s}:gen"
)

// KEYS[1] balance, KEYS[2] generation; ARGV[1] expected generation, ARGV[2] payload, ARGV[3] ttl ms.
const compareAndSetScript = `
local current = redis.call("GET", KEYS[2])
if current == false then
  current = "0"
end
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

// RedisCreditCache shares balances across replicas. Both keys of a balance hash to the
// same slot through the braces so the script works on a cluster.
type RedisCreditCache struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisCreditCache(client *redis.Client) *RedisCreditCache {
	if client == nil {
		return nil
	}
	return &RedisCreditCache{
		client: client,
		script: redis.NewScript(compareAndSetScript),
	}
}

func (c *RedisCreditCache) Get(ctx context.Context, key CreditKey) (creditdomain.Balance, bool, error) {
	raw, err := c.client.Get(ctx, balanceKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return creditdomain.Balance{}, false, nil
	}
	if err != nil {
		return creditdomain.Balance{}, false, err
	}

	var balance creditdomain.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return creditdomain.Balance{}, false, err
	}
	return balance, true, nil
}

func (c *RedisCreditCache) Generation(ctx context.Context, key CreditKey) (uint64, error) {
	raw, err := c.client.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (c *RedisCreditCache) Set(ctx context.Context, key CreditKey, balance creditdomain.Balance, generation uint64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	payload, err := json.Marshal(balance)
	if err != nil {
		return false, err
	}
	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	stored, err := c.script.Run(
		ctx,
		c.client,
		[]string{balanceKey(key), generationKey(key)},
		strconv.FormatUint(generation, 10),
		payload,
		ttlMillis,
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisCreditCache) Invalidate(ctx context.Context, key CreditKey) error {
	genKey := generationKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, balanceKey(key))
		pipe.Incr(ctx, genKey)
		pipe.PExpire(ctx, genKey, generationTTL)
		return nil
	})
	return err
}

func balanceKey(key CreditKey) string {
	return fmt.Sprintf(keyCreditBalance, key.String())
}

func generationKey(key CreditKey) string {
	return fmt.Sprintf(keyCreditGeneration, key.String())
}
