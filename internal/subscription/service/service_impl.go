package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/clock"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invalidator drops cached credit balances after allowances change.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, tenantID snowflake.ID) error
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	repo        subscriptiondomain.Repository
	invalidator Invalidator
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        subscriptiondomain.Repository
	Invalidator Invalidator `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invalidator: p.Invalidator,
	}
}

func (s *Service) GetCurrent(ctx context.Context, tenantID string) (subscriptiondomain.Subscription, error) {
	id, err := s.parseID(tenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	item, err := s.repo.FindCurrent(ctx, s.db, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if item == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *item, nil
}

func (s *Service) Upsert(ctx context.Context, req subscriptiondomain.UpsertRequest) (subscriptiondomain.Subscription, error) {
	tenantID, err := s.parseID(req.TenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	status, ok := subscriptiondomain.ParseStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidStatus
	}

	limits := req.Limits
	if limits.SMS < 0 || limits.Email < 0 || limits.WhatsApp < 0 || limits.Voice < 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidLimit
	}

	if req.BillingAnchorDay != nil {
		if day := *req.BillingAnchorDay; day < 1 || day > 31 {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidAnchorDay
		}
	}

	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:               s.genID.Generate(),
		TenantID:         tenantID,
		Status:           status,
		SMSLimit:         limits.SMS,
		EmailLimit:       limits.Email,
		WhatsAppLimit:    limits.WhatsApp,
		VoiceLimit:       limits.Voice,
		BillingAnchorDay: req.BillingAnchorDay,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var stored *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &subscription); err != nil {
			return err
		}
		current, err := s.repo.FindCurrent(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		stored = current
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if stored == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTenant(ctx, tenantID); err != nil {
			s.log.Warn("failed to invalidate cached balances after subscription change",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}

	s.log.Info("subscription upserted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("status", string(stored.Status)),
	)
	return *stored, nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}
