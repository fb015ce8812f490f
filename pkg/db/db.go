// Package db provides the shared gorm connection.
package db

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
)

// Open connects to Postgres when DATABASE_URL is set and falls back to
// a local sqlite file for development.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	log.Warn("DATABASE_URL not set, using local sqlite database")
	return gorm.Open(sqlite.Open("commission.db"), &gorm.Config{})
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
