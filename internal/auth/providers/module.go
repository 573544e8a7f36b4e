package providers

import (
	"github.com/brizzai/agency-chat/internal/config"
	"go.uber.org/fx"
)

// Module provides the Google identity provider, also as an IdentityProvider
var Module = fx.Module("identity",
	fx.Provide(
		func(cfg *config.Config) *GoogleProvider { return NewGoogleProvider(&cfg.Google) },
		func(p *GoogleProvider) IdentityProvider { return p },
	),
)
