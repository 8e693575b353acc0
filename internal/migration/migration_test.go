package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/commcredit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestUsagePeriodsHaveUniqueWindowPerTenant(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_credit_ledger.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "UNIQUE (tenant_id, period_start)")
}

func TestAutoMigrateModelsOnSQLite(t *testing.T) {
	conn := testutil.OpenSQLiteEmpty(t)
	require.NoError(t, AutoMigrateModels(conn))

	for _, table := range []string{"subscriptions", "usage_periods", "credit_topups"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("usage_periods", "ux_usage_periods_tenant_start"))
}
