package order

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/order/service"
)

var Module = fx.Module("order.service",
	fx.Provide(service.NewService),
)
