package session

import (
	"context"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/events"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the session manager and its event bus
var Module = fx.Module("session",
	fx.Provide(
		events.NewBus,
		NewManager,
	),
	fx.Invoke(watchTokenFile),
)

// watchTokenFile keeps the manager in step with other processes sharing the
// token file, when enabled.
func watchTokenFile(lc fx.Lifecycle, cfg *config.Config, store *tokenstore.FileStore, m *Manager) {
	if !cfg.Session.Watch {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := store.Watch(ctx, m.SyncToken); err != nil {
					logger.Warn("Token file watcher stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
