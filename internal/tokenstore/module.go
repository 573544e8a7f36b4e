package tokenstore

import (
	"github.com/brizzai/agency-chat/internal/config"
	"go.uber.org/fx"
)

// Module provides the file-backed token store, also as a Store
var Module = fx.Module("tokenstore",
	fx.Provide(
		func(cfg *config.Config) *FileStore { return NewFileStore(cfg.Session.TokenFile) },
		func(s *FileStore) Store { return s },
	),
)
