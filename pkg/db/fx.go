package db

import (
	"context"
	"time"

	"github.com/smallbiznis/commcredit/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(FromAppConfig),
	fx.Provide(Open),
)

// Open connects gorm, installs tracing and pool metrics, and closes the pool on stop.
func Open(lc fx.Lifecycle, cfg Config, gormLog logger.GormLoggerConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(gormLog),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name), otelgorm.WithoutQueryVariables())); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.Name,
		RefreshInterval: 15,
	})); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(context.Context) error {
			log.Info("closing database pool")
			return sqlDB.Close()
		},
	})

	log.Info("database connected", zap.String("dialect", dialector.Name()))
	return conn, nil
}
