package ledger

import (
	"go.uber.org/fx"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/service"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
)
