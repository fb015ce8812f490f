package customer

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/service"
)

var Module = fx.Module("customer.service",
	fx.Provide(service.NewService),
)
