// Package seed provisions a demo tenant for local development.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/commcredit/internal/config"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var DemoLimits = subscriptiondomain.ChannelLimits{
	SMS:      1000,
	Email:    5000,
	WhatsApp: 500,
	Voice:    100,
}

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, svc subscriptiondomain.Service, log *zap.Logger) {
		if cfg.SeedTenantID == "" {
			return
		}
		log = log.Named("seed")
		if !cfg.IsDevelopment() {
			log.Warn("SEED_TENANT_ID ignored outside development", zap.String("environment", cfg.Environment))
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				created, err := EnsureDemoSubscription(ctx, svc, cfg.SeedTenantID)
				if err != nil {
					return err
				}
				log.Info("demo subscription ready", zap.String("tenant_id", cfg.SeedTenantID), zap.Bool("created", created))
				return nil
			},
		})
	}),
)

// EnsureDemoSubscription gives tenantID an active subscription with DemoLimits unless
// it already has one. An existing subscription is left untouched.
func EnsureDemoSubscription(ctx context.Context, svc subscriptiondomain.Service, tenantID string) (bool, error) {
	if svc == nil {
		return false, errors.New("seed subscription service is required")
	}
	tenantID = strings.TrimSpace(tenantID)

	_, err := svc.GetCurrent(ctx, tenantID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound):
		return false, err
	}

	if _, err := svc.Upsert(ctx, subscriptiondomain.UpsertRequest{
		TenantID: tenantID,
		Status:   string(subscriptiondomain.SubscriptionStatusActive),
		Limits:   DemoLimits,
	}); err != nil {
		return false, err
	}
	return true, nil
}
