package migration

import (
	"github.com/smallbiznis/commcredit/internal/config"
	"github.com/smallbiznis/commcredit/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.AutoMigrate {
			return nil
		}
		log = log.Named("migration")

		if conn.Dialector.Name() != db.DialectPostgres {
			log.Info("auto-migrating models", zap.String("dialect", conn.Dialector.Name()))
			return AutoMigrateModels(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		version, dirty, err := Version(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}),
)
