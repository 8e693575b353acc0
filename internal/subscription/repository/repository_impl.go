package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

// Upsert keeps one row per tenant; the existing id and created_at survive an update.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"sms_limit",
				"email_limit",
				"whatsapp_limit",
				"voice_limit",
				"billing_anchor_day",
				"updated_at",
			}),
		}).
		Create(subscription).Error
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, status, sms_limit, email_limit, whatsapp_limit, voice_limit,
		billing_anchor_day, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = ?
		LIMIT 1`,
		tenantID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}
