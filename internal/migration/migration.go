package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.
	return nil
}

// Version reports the applied schema version; dirty means a migration failed halfway.
func Version(db *sql.DB) (uint, bool, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// AutoMigrateModels builds the schema from the gorm models for dialects without
// hand-written migrations (sqlite for local runs, mysql).
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&creditdomain.UsagePeriod{},
		&creditdomain.TopUp{},
	)
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}
