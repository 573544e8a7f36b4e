// Package server exposes the chat relay as an MCP server so that MCP
// clients can talk to the agency's assistant through the local session.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/server/handler"
	"github.com/brizzai/agency-chat/internal/server/tool"
	"github.com/brizzai/agency-chat/internal/session"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second

	serverName = "Agency Chat"
)

// Server is the MCP server wrapping one chat session. It supports the
// STDIO and streamable HTTP transports.
type Server struct {
	config  *config.MCPConfig
	mcp     *mcpserver.MCPServer
	handler *handler.Handler
	tool    *tool.Handler
}

// NewServer creates the MCP server and registers the chat tools.
func NewServer(cfg *config.MCPConfig, s tool.ChatSession, historyLimit int) *Server {
	mcpServer := mcpserver.NewMCPServer(
		serverName,
		config.Version(),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("Relay messages to the agency's assistant on behalf of the signed-in user."),
	)

	srv := &Server{
		config:  cfg,
		mcp:     mcpServer,
		handler: handler.NewHandler("/mcp"),
		tool:    tool.NewHandler(s, historyLimit),
	}
	srv.setupTools()
	return srv
}

func (s *Server) setupTools() {
	tools := s.tool.Tools()
	for _, t := range tools {
		logger.Debug("Adding tool", zap.String("name", t.Tool.Name))
	}
	s.mcp.AddTools(tools...)
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	logger.Info("Starting HTTP server")
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, h http.Handler, mode string) error {
	addr := s.config.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.serveListener(ctx, listener, h, mode)
}

func (s *Server) serveListener(ctx context.Context, listener net.Listener, h http.Handler, mode string) error {
	server := &http.Server{
		Handler:           s.handler.CreateHTTPHandler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", listener.Addr().String()),
		)

		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// ServeSTDIO serves MCP on the process's standard streams.
func (s *Server) ServeSTDIO(ctx context.Context) error {
	return s.serveStream(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveStream(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	stdioServer.SetErrorLogger(zap.NewStdLog(logger.GetLogger()))
	err := stdioServer.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start starts the server in the configured mode (HTTP or STDIO).
// It returns an error if the server fails to start or encounters an error
// during operation.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Mode)),
		zap.String("version", config.Version()),
	)

	switch s.config.Mode {
	case config.MCPModeHTTP:
		return s.ServeHTTP(ctx)
	case config.MCPModeSTDIO, "":
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		func(cfg *config.Config, m *session.Manager) *Server {
			return NewServer(&cfg.MCP, m, cfg.Chat.HistoryLimit)
		},
	),
)
