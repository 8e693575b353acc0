package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindCurrent(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
}
