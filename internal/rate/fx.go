package rate

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/service"
)

var Module = fx.Module("rate.service",
	fx.Provide(service.NewService),
)
