package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/audit"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/customer"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/events"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/importer"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/migration"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/observability/logger"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/order"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/rate"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/scheduler"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/seed"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/server"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/summary"
	"github.com/OGcaptYETI/notanothercrm-sub003/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),
		fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			ctx := context.Background()
			if cfg.DatabaseURL != "" {
				if err := migration.Run(ctx, conn, log); err != nil {
					return err
				}
			} else {
				if err := seed.AutoMigrate(conn); err != nil {
					return err
				}
			}
			return seed.EnsureDefaultRateRules(conn)
		}),
		audit.Module,
		customer.Module,
		order.Module,
		rate.Module,
		summary.Module,
		ledger.Module,
		importer.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
