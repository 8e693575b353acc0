package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const usageColumns = `id, tenant_id, period_start, period_end, sms_sent, email_sent, whatsapp_sent, voice_sent, created_at, updated_at`

type repo struct{}

func Provide() creditdomain.Repository {
	return &repo{}
}

func (r *repo) FindUsage(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart time.Time) (*creditdomain.UsagePeriod, error) {
	var row creditdomain.UsagePeriod
	err := db.WithContext(ctx).Raw(
		`SELECT `+usageColumns+`
		 FROM usage_periods
		 WHERE tenant_id = ? AND period_start = ?
		 LIMIT 1`,
		tenantID,
		periodStart,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) LatestUsageAt(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, at time.Time) (*creditdomain.UsagePeriod, error) {
	var row creditdomain.UsagePeriod
	err := db.WithContext(ctx).Raw(
		`SELECT `+usageColumns+`
		 FROM usage_periods
		 WHERE tenant_id = ? AND period_start <= ?
		 ORDER BY period_start DESC
		 LIMIT 1`,
		tenantID,
		at,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// FindOrCreateUsage inserts the row unless one already exists for the tenant window and
// returns whichever row won. created is false when another writer got there first.
func (r *repo) FindOrCreateUsage(ctx context.Context, conn *gorm.DB, row creditdomain.UsagePeriod) (*creditdomain.UsagePeriod, bool, error) {
	existing, err := r.FindUsage(ctx, conn, row.TenantID, row.PeriodStart)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil && !db.IsDuplicateKeyErr(result.Error) {
		return nil, false, result.Error
	}
	created := result.Error == nil && result.RowsAffected == 1

	stored, err := r.FindUsage(ctx, conn, row.TenantID, row.PeriodStart)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, errors.New("usage_period_missing_after_insert")
	}
	return stored, created && stored.ID == row.ID, nil
}

func (r *repo) LockUsage(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*creditdomain.UsagePeriod, error) {
	query := `SELECT ` + usageColumns + `
		 FROM usage_periods
		 WHERE id = ?`
	// sqlite has no row locks; its single writer already serializes the transaction.
	if !db.IsSQLite(tx) {
		query += ` FOR UPDATE`
	}

	var row creditdomain.UsagePeriod
	if err := tx.WithContext(ctx).Raw(query, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// IncrementSent adds amount to the channel counter only while the result stays within
// allowance. It reports false when the guard rejected the update.
func (r *repo) IncrementSent(ctx context.Context, tx *gorm.DB, id snowflake.ID, channel creditdomain.Channel, amount, allowance int64, now time.Time) (bool, error) {
	column := channel.SentColumn()
	if column == "" {
		return false, creditdomain.ErrInvalidChannel
	}

	result := tx.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE usage_periods
			 SET %[1]s = %[1]s + ?, updated_at = ?
			 WHERE id = ? AND %[1]s + ? <= ?`,
			column,
		),
		amount,
		now,
		id,
		amount,
		allowance,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) SumTopUps(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, channel creditdomain.Channel, window creditdomain.Window) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM credit_topups
		 WHERE tenant_id = ? AND channel = ? AND created_at >= ? AND created_at < ?`,
		tenantID,
		channel,
		window.Start,
		window.End,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) InsertTopUp(ctx context.Context, db *gorm.DB, topUp *creditdomain.TopUp) error {
	return db.WithContext(ctx).Create(topUp).Error
}

func (r *repo) ListTopUps(ctx context.Context, db *gorm.DB, filter creditdomain.TopUpFilter) ([]creditdomain.TopUp, error) {
	var (
		where = []string{"tenant_id = ?", "created_at >= ?", "created_at < ?"}
		args  = []any{filter.TenantID, filter.Window.Start, filter.Window.End}
	)
	if filter.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, filter.Channel)
	}
	if filter.BeforeCreatedAt != nil {
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, *filter.BeforeCreatedAt, *filter.BeforeCreatedAt, filter.BeforeID)
	}

	query := `SELECT id, tenant_id, channel, amount, reason, added_by, metadata, created_at
		 FROM credit_topups
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []creditdomain.TopUp
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
