package cache

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/commcredit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewCreditCache),
)

// NewRedisClient returns nil when REDIS_ADDR is unset; consumers treat that as "no redis".
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewCreditCache(cfg config.Config, client *redis.Client, log *zap.Logger) (CreditCache, error) {
	log = log.Named("cache")
	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		log.Info("credit cache disabled")
		return NoopCreditCache{}, nil
	case config.CacheBackendRedis:
		if client == nil {
			return nil, errors.New("cache backend redis requires REDIS_ADDR")
		}
		log.Info("credit cache backed by redis")
		return NewRedisCreditCache(client), nil
	default:
		log.Info("credit cache in memory")
		return NewMemoryCreditCache(), nil
	}
}
