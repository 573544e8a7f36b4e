package requester

import (
	"github.com/brizzai/agency-chat/internal/config"
	"go.uber.org/fx"
)

// Module provides the requester module dependencies
var Module = fx.Module("requester",
	fx.Provide(
		func(cfg *config.Config) *config.APIConfig { return &cfg.API },
		NewHTTPRequester,
	),
)
