package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/cache"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"go.uber.org/zap"
)

const subscriptionStatusNone = "NONE"

func (s *Service) Available(ctx context.Context, tenantID string, channel string) (int64, error) {
	balance, err := s.GetBalance(ctx, tenantID, channel)
	if err != nil {
		return 0, err
	}
	return balance.Available, nil
}

func (s *Service) CanUseChannel(ctx context.Context, tenantID string, channel string, amount int64) (bool, error) {
	id, ch, err := s.parseTenantAndChannel(tenantID, channel)
	if err != nil {
		return false, err
	}
	if amount <= 0 {
		return false, creditdomain.ErrInvalidAmount
	}

	balance, err := s.balance(ctx, id, ch, s.clock.Now())
	if err != nil {
		return false, err
	}
	return balance.Available >= amount, nil
}

func (s *Service) GetCurrentUsage(ctx context.Context, tenantID string, channel string) (int64, error) {
	balance, err := s.GetBalance(ctx, tenantID, channel)
	if err != nil {
		return 0, err
	}
	return balance.Used, nil
}

func (s *Service) GetBalance(ctx context.Context, tenantID string, channel string) (creditdomain.Balance, error) {
	id, ch, err := s.parseTenantAndChannel(tenantID, channel)
	if err != nil {
		return creditdomain.Balance{}, err
	}
	return s.balance(ctx, id, ch, s.clock.Now())
}

func (s *Service) Summary(ctx context.Context, tenantID string) (creditdomain.Summary, error) {
	id, err := s.parseID(tenantID, creditdomain.ErrInvalidTenant)
	if err != nil {
		return creditdomain.Summary{}, err
	}

	now := s.clock.Now()
	sub, err := s.subRepo.FindCurrent(ctx, s.db, id)
	if err != nil {
		return creditdomain.Summary{}, err
	}

	summary := creditdomain.Summary{
		TenantID:           id,
		SubscriptionStatus: subscriptionStatusNone,
		Channels:           make([]creditdomain.Balance, 0, len(creditdomain.Channels)),
	}
	if sub != nil {
		summary.SubscriptionStatus = string(sub.Status)
	}

	for _, channel := range creditdomain.Channels {
		balance, err := s.balance(ctx, id, channel, now)
		if err != nil {
			return creditdomain.Summary{}, err
		}
		summary.PeriodStart = balance.PeriodStart
		summary.PeriodEnd = balance.PeriodEnd
		summary.Channels = append(summary.Channels, balance)
	}
	return summary, nil
}

// balance serves from the cache when it can. On a miss the generation is read before the
// store so a concurrent mutation makes the later Set a no-op instead of caching stale data.
// Reads never create a usage row.
func (s *Service) balance(ctx context.Context, tenantID snowflake.ID, channel creditdomain.Channel, now time.Time) (creditdomain.Balance, error) {
	window, err := s.resolveWindow(ctx, s.db, tenantID, now)
	if err != nil {
		s.ledgerMetrics.IncError(metrics.LedgerOperationRead, err)
		return creditdomain.Balance{}, err
	}
	key := cache.CreditKey{TenantID: tenantID, Channel: channel, PeriodStart: window.Start}

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.ledgerMetrics.IncCacheLookup(metrics.CacheResultError)
		s.log.Warn("credit cache read failed, using store", zap.String("key", key.String()), zap.Error(err))
	case ok:
		s.ledgerMetrics.IncCacheLookup(metrics.CacheResultHit)
		return cached, nil
	default:
		s.ledgerMetrics.IncCacheLookup(metrics.CacheResultMiss)
	}

	generation, genErr := s.cache.Generation(ctx, key)

	balance, err := s.computeBalance(ctx, tenantID, channel, window)
	if err != nil {
		s.ledgerMetrics.IncError(metrics.LedgerOperationRead, err)
		return creditdomain.Balance{}, err
	}

	if genErr == nil {
		if _, err := s.cache.Set(ctx, key, balance, generation, s.creditsConfig.Get().CacheTTL); err != nil {
			s.log.Warn("credit cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return balance, nil
}

func (s *Service) computeBalance(ctx context.Context, tenantID snowflake.ID, channel creditdomain.Channel, window creditdomain.Window) (creditdomain.Balance, error) {
	sub, err := s.subRepo.FindCurrent(ctx, s.db, tenantID)
	if err != nil {
		return creditdomain.Balance{}, err
	}
	usage, err := s.repo.FindUsage(ctx, s.db, tenantID, window.Start)
	if err != nil {
		return creditdomain.Balance{}, err
	}
	topUps, err := s.repo.SumTopUps(ctx, s.db, tenantID, channel, window)
	if err != nil {
		return creditdomain.Balance{}, err
	}

	return creditdomain.NewBalance(tenantID, channel, window, baseAllowance(sub, channel), topUps, usage.Sent(channel)), nil
}

func baseAllowance(sub *subscriptiondomain.Subscription, channel creditdomain.Channel) int64 {
	return sub.AllowanceFor(channel.String())
}
