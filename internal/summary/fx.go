package summary

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/service"
)

var Module = fx.Module("summary.service",
	fx.Provide(service.NewService),
)
