// Package devserver is a local stand-in for the agency's chat backend. It
// implements the auth and chat endpoints the client talks to, with
// canned replies and in-memory history.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/agency-chat/internal/auth/constants"
	"github.com/brizzai/agency-chat/internal/auth/middleware"
	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/server/handler"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second

	// maxBodySize bounds request bodies; chat messages and ID tokens are small.
	maxBodySize = 64 * 1024
)

// Server is the development chat backend.
type Server struct {
	config      *config.DevServerConfig
	tokens      *TokenIssuer
	credentials *CredentialChecker
	history     *HistoryStore
	metrics     *Metrics
	router      chi.Router
}

// NewServer builds the backend. audience, when set, must appear in the
// Google ID tokens presented for sign-in.
func NewServer(cfg *config.DevServerConfig, audience string) (*Server, error) {
	tokens, err := NewTokenIssuer(cfg.SigningKey, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	if cfg.SigningKey == "" {
		logger.Warn("No devserver.signing_key configured, using a random key; sessions end on restart")
	}

	s := &Server{
		config:      cfg,
		tokens:      tokens,
		credentials: NewCredentialChecker(audience),
		history:     NewHistoryStore(),
		metrics:     NewMetrics(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(handler.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(maxBodySize))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Post(constants.PathGoogle, s.handleGoogle)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.tokens))

		r.Get(constants.PathVerify, s.handleVerify)
		r.Post(constants.PathLogout, s.handleLogout)
		r.Post(constants.PathChatbot, s.handleChatbot)
		r.Get(constants.PathChatHistory, s.handleHistory)
	})

	return r
}

// ServeHTTP lets the router be used directly, e.g. with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener and shuts down gracefully when ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting development backend",
			zap.String("address", listener.Addr().String()),
			zap.Strings("allow_origins", s.config.AllowOrigins),
		)

		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down development backend", zap.Duration("timeout", shutdownTimeout))
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

// Module provides the development backend
var Module = fx.Module("devserver",
	fx.Provide(
		func(cfg *config.Config) (*Server, error) {
			return NewServer(&cfg.DevServer, cfg.Google.ClientID)
		},
	),
)
