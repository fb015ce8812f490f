package importer

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/service"
)

var Module = fx.Module("importer.service",
	fx.Provide(service.NewService),
)
