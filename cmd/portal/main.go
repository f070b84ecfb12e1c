package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/terralink/portal/internal/activity"
	"github.com/terralink/portal/internal/appcatalog"
	"github.com/terralink/portal/internal/apptoken"
	"github.com/terralink/portal/internal/auth"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
	"github.com/terralink/portal/internal/domainlist"
	"github.com/terralink/portal/internal/identity"
	"github.com/terralink/portal/internal/migration"
	"github.com/terralink/portal/internal/observability"
	"github.com/terralink/portal/internal/ratelimit"
	"github.com/terralink/portal/internal/scheduler"
	"github.com/terralink/portal/internal/server"
	"github.com/terralink/portal/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		auth.Module,
		identity.Module,
		apptoken.Module,
		appcatalog.Module,
		domainlist.Module,
		activity.Module,
		ratelimit.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
