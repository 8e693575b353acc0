package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/cache"
	"github.com/smallbiznis/commcredit/internal/clock"
	"github.com/smallbiznis/commcredit/internal/config"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/credit/period"
	"github.com/smallbiznis/commcredit/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID         *snowflake.Node
	clock         clock.Clock
	repo          creditdomain.Repository
	subRepo       subscriptiondomain.Repository
	cache         cache.CreditCache
	creditsConfig *config.CreditsConfigHolder
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
	tracer        trace.Tracer
}

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             creditdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	Cache            cache.CreditCache           `optional:"true"`
	CreditsConfig    *config.CreditsConfigHolder `optional:"true"`
	Metrics          *metrics.Metrics            `optional:"true"`
	LedgerMetrics    *metrics.LedgerMetrics      `optional:"true"`
}

func NewService(p ServiceParam) *Service {
	creditCache := p.Cache
	if creditCache == nil {
		creditCache = cache.NoopCreditCache{}
	}
	creditsConfig := p.CreditsConfig
	if creditsConfig == nil {
		creditsConfig = config.NewStaticCreditsConfigHolder(config.DefaultCreditsConfig())
	}

	return &Service{
		db:  p.DB,
		log: p.Log.Named("credit.service"),

		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		subRepo:       p.SubscriptionRepo,
		cache:         creditCache,
		creditsConfig: creditsConfig,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
		tracer:        otel.Tracer("commcredit/credit"),
	}
}

// InvalidateTenant drops every cached balance of the tenant's current window.
// Called after the subscription allowances change.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID snowflake.ID) error {
	now := s.clock.Now()
	sub, err := s.subRepo.FindCurrent(ctx, s.db, tenantID)
	if err != nil {
		return err
	}

	// Both alignments and the stored window are dropped so an anchor change cannot
	// leave an old key readable.
	windows := []creditdomain.Window{period.Resolve(now, 0, config.PeriodAlignmentCalendar)}
	if anchor := sub.AnchorDay(); anchor > 0 {
		windows = append(windows, period.Resolve(now, anchor, config.PeriodAlignmentAnniversary))
	}
	if current, err := s.resolveWindow(ctx, s.db, tenantID, now); err == nil {
		windows = append(windows, current)
	}

	var errs []error
	for _, window := range windows {
		for _, channel := range creditdomain.Channels {
			if err := s.invalidate(ctx, tenantID, channel, window); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// resolveWindow returns the window that now falls in. A stored usage row that
// covers now wins over the derived window, so anchor or alignment changes only
// apply from the next period.
func (s *Service) resolveWindow(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) (creditdomain.Window, error) {
	derived, err := s.derivedWindow(ctx, db, tenantID, now)
	if err != nil {
		return creditdomain.Window{}, err
	}

	latest, err := s.repo.LatestUsageAt(ctx, db, tenantID, now)
	if err != nil {
		return creditdomain.Window{}, err
	}
	if latest == nil {
		return derived, nil
	}
	return period.Continue(now, derived, &creditdomain.Window{Start: latest.PeriodStart, End: latest.PeriodEnd}), nil
}

// derivedWindow loads the subscription only when the alignment depends on its anchor.
func (s *Service) derivedWindow(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) (creditdomain.Window, error) {
	alignment := s.creditsConfig.Get().PeriodAlignment
	if alignment != config.PeriodAlignmentAnniversary {
		return period.Resolve(now, 0, alignment), nil
	}

	sub, err := s.subRepo.FindCurrent(ctx, db, tenantID)
	if err != nil {
		return creditdomain.Window{}, err
	}
	return period.Resolve(now, sub.AnchorDay(), alignment), nil
}

func (s *Service) invalidate(ctx context.Context, tenantID snowflake.ID, channel creditdomain.Channel, window creditdomain.Window) error {
	err := s.cache.Invalidate(ctx, cache.CreditKey{TenantID: tenantID, Channel: channel, PeriodStart: window.Start})
	s.ledgerMetrics.IncCacheInvalidation(err)
	if err != nil {
		s.log.Warn("credit cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
	}
	return err
}

func (s *Service) parseTenantAndChannel(tenantID, channel string) (snowflake.ID, creditdomain.Channel, error) {
	ch, err := creditdomain.ParseChannel(channel)
	if err != nil {
		return 0, "", err
	}
	id, err := s.parseID(tenantID, creditdomain.ErrInvalidTenant)
	if err != nil {
		return 0, "", err
	}
	return id, ch, nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}
