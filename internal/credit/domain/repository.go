package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindUsage never creates a row; a missing row is (nil, nil).
	FindUsage(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart time.Time) (*UsagePeriod, error)
	// LatestUsageAt returns the most recent row whose period_start is not after at,
	// whether or not it still covers at; (nil, nil) when the tenant has none.
	LatestUsageAt(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, at time.Time) (*UsagePeriod, error)
	FindOrCreateUsage(ctx context.Context, db *gorm.DB, row UsagePeriod) (*UsagePeriod, bool, error)
	LockUsage(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*UsagePeriod, error)
	IncrementSent(ctx context.Context, tx *gorm.DB, id snowflake.ID, channel Channel, amount, allowance int64, now time.Time) (bool, error)

	SumTopUps(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, channel Channel, window Window) (int64, error)
	InsertTopUp(ctx context.Context, db *gorm.DB, topUp *TopUp) error
	ListTopUps(ctx context.Context, db *gorm.DB, filter TopUpFilter) ([]TopUp, error)
}

type TopUpFilter struct {
	TenantID snowflake.ID
	Channel  Channel
	Window   Window

	// Keyset cursor: rows strictly older than (BeforeCreatedAt, BeforeID).
	BeforeCreatedAt *time.Time
	BeforeID        snowflake.ID
	Limit           int
}
