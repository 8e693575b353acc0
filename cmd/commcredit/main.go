package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/clock"
	"github.com/smallbiznis/commcredit/internal/config"
	"github.com/smallbiznis/commcredit/internal/migration"
	"github.com/smallbiznis/commcredit/internal/observability"
	"github.com/smallbiznis/commcredit/internal/seed"
	"github.com/smallbiznis/commcredit/internal/server"
	"github.com/smallbiznis/commcredit/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema first so the first request finds its tables
		migration.Module,
		server.Module,
		seed.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
