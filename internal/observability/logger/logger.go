// Package logger provides the zap logger and request logging middleware.
package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
)

// New builds the process logger. Production gets JSON output,
// everything else the development console encoder.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

var Module = fx.Module("logger",
	fx.Provide(New),
)
