package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brizzai/agency-chat/internal/auth/providers"
	"github.com/brizzai/agency-chat/internal/devserver"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/requester"
	"github.com/brizzai/agency-chat/internal/server"
	"github.com/brizzai/agency-chat/internal/session"
	"github.com/brizzai/agency-chat/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const (
	// annotationFileLogging marks commands that own the terminal
	annotationFileLogging = "file-logging"

	startTimeout = 15 * time.Second
	stopTimeout  = 10 * time.Second
)

// clientModules build a session manager from the configuration.
func clientModules() fx.Option {
	return fx.Options(
		requester.Module,
		tokenstore.Module,
		providers.Module,
		session.Module,
	)
}

// newApp creates the fx application around the loaded configuration.
func newApp(opts ...fx.Option) *fx.App {
	base := []fx.Option{
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
	}
	return fx.New(append(base, opts...)...)
}

// withApp starts an application, runs fn and stops it again. ctx is
// cancelled on SIGINT/SIGTERM.
func withApp(ctx context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	app := newApp(opts...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(runCtx)
}

// withSession runs fn with the session manager.
func withSession(ctx context.Context, fn func(ctx context.Context, m *session.Manager) error) error {
	var m *session.Manager
	return withApp(ctx, func(ctx context.Context) error {
		return fn(ctx, m)
	}, clientModules(), fx.Populate(&m))
}

// withMCPServer runs the MCP bridge until ctx ends.
func withMCPServer(ctx context.Context) error {
	var srv *server.Server
	return withApp(ctx, func(ctx context.Context) error {
		return srv.Start(ctx)
	}, clientModules(), server.Module, fx.Populate(&srv))
}

// withDevServer runs the development backend until ctx ends.
func withDevServer(ctx context.Context) error {
	var srv *devserver.Server
	return withApp(ctx, func(ctx context.Context) error {
		return srv.Start(ctx)
	}, devserver.Module, fx.Populate(&srv))
}
