package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/clock"
	"github.com/smallbiznis/commcredit/internal/config"
	"github.com/smallbiznis/commcredit/internal/observability"
	"github.com/smallbiznis/commcredit/internal/server"
	"github.com/smallbiznis/commcredit/pkg/db"
	"go.uber.org/fx"
)

// The API binary serves credit checks and deductions only; schema changes run from cmd/commcredit.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
