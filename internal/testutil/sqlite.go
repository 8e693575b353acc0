// Package testutil opens throwaway sqlite databases carrying the metering schema.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE subscriptions (
		id INTEGER PRIMARY KEY,
		tenant_id INTEGER NOT NULL UNIQUE,
		status TEXT NOT NULL,
		sms_limit INTEGER NOT NULL DEFAULT 0,
		email_limit INTEGER NOT NULL DEFAULT 0,
		whatsapp_limit INTEGER NOT NULL DEFAULT 0,
		voice_limit INTEGER NOT NULL DEFAULT 0,
		billing_anchor_day INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE usage_periods (
		id INTEGER PRIMARY KEY,
		tenant_id INTEGER NOT NULL,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		sms_sent INTEGER NOT NULL DEFAULT 0 CHECK (sms_sent >= 0),
		email_sent INTEGER NOT NULL DEFAULT 0 CHECK (email_sent >= 0),
		whatsapp_sent INTEGER NOT NULL DEFAULT 0 CHECK (whatsapp_sent >= 0),
		voice_sent INTEGER NOT NULL DEFAULT 0 CHECK (voice_sent >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (tenant_id, period_start)
	)`,
	`CREATE TABLE credit_topups (
		id INTEGER PRIMARY KEY,
		tenant_id INTEGER NOT NULL,
		channel TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		reason TEXT,
		added_by TEXT,
		metadata JSON,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX ix_credit_topups_tenant_channel_created ON credit_topups (tenant_id, channel, created_at)`,
}

// OpenSQLite returns an in-memory database private to the calling test, with the
// metering tables in place.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db := OpenSQLiteEmpty(t)
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
	return db
}

// OpenSQLiteEmpty is OpenSQLite without tables.
// A single connection keeps every statement on the same shared-cache handle,
// which also serializes concurrent callers: tests on this DB check outcomes
// under goroutine interleaving, not row locks or insert races. Those run
// against postgres under the integration build tag.
func OpenSQLiteEmpty(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_", "?", "_", "&", "_", "=", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
