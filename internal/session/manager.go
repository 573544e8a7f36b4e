// Package session owns the bearer token and every backend call that depends on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/agency-chat/internal/auth/constants"
	"github.com/brizzai/agency-chat/internal/auth/providers"
	"github.com/brizzai/agency-chat/internal/events"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/requester"
	"github.com/brizzai/agency-chat/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the dependencies of a Manager.
type Params struct {
	fx.In

	Requester *requester.HTTPRequester
	Store     tokenstore.Store
	Bus       *events.Bus
	Provider  providers.IdentityProvider `optional:"true"`
}

// Manager is the single source of truth for the session token. It is safe
// for concurrent use; concurrent sign-in/sign-out calls resolve as last
// writer wins.
type Manager struct {
	requester *requester.HTTPRequester
	store     tokenstore.Store
	bus       *events.Bus
	provider  providers.IdentityProvider

	mu    sync.Mutex
	token string
	state State
}

// NewManager builds the manager and restores any persisted token. A token
// store that cannot be read starts the session logged out.
func NewManager(p Params) *Manager {
	bus := p.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	m := &Manager{
		requester: p.Requester,
		store:     p.Store,
		bus:       bus,
		provider:  p.Provider,
		state:     LoggedOut{},
	}

	token, err := m.store.Load()
	if err != nil {
		logger.Warn("Failed to restore session token", zap.Error(err))
	}
	m.token = token
	return m
}

// Events exposes the auth notifications.
func (m *Manager) Events() *events.Bus {
	return m.bus
}

// Token returns the current bearer token, "" when logged out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// State returns the last known session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated verifies the token with the backend. It never fails:
// rejected tokens are purged, unreachable backends read as "no".
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.verify(ctx)
	return ok
}

// CurrentUser returns the verified user or nil.
func (m *Manager) CurrentUser(ctx context.Context) *models.User {
	user, _ := m.verify(ctx)
	return user
}

func (m *Manager) verify(ctx context.Context) (*models.User, bool) {
	m.mu.Lock()
	token := m.token
	if token == "" {
		m.state = LoggedOut{}
		m.mu.Unlock()
		return nil, false
	}
	prev := m.state
	m.state = Verifying{}
	m.mu.Unlock()

	resp, err := m.requester.Do(ctx, &requester.Request{
		Method: http.MethodGet,
		Path:   constants.PathVerify,
		Auth:   m.requester.Auth(token),
	})
	if err != nil {
		logger.Warn("Failed to verify session", zap.Error(err))
		m.restore(token, prev)
		return nil, false
	}

	if !resp.OK() {
		logger.Info("Session rejected by backend", zap.Int("status", resp.StatusCode), logger.Token("token", token))
		m.invalidate(token)
		return nil, false
	}

	var body models.VerifyResponse
	if err := resp.DecodeJSON(&body); err != nil {
		logger.Warn("Malformed verify response", zap.Error(err))
		m.restore(token, prev)
		return nil, false
	}

	m.mu.Lock()
	if m.token == token {
		m.state = LoggedIn{User: body.User}
	}
	m.mu.Unlock()
	return &body.User, true
}

// restore undoes a Verifying transition when verification was inconclusive.
func (m *Manager) restore(token string, prev State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != token {
		return
	}
	if _, verifying := m.state.(Verifying); verifying {
		m.state = prev
	}
}

// invalidate purges token if it is still the current one and announces the logout.
func (m *Manager) invalidate(token string) {
	m.mu.Lock()
	if m.token != token {
		m.mu.Unlock()
		return
	}
	m.clearLocked()
	m.mu.Unlock()

	m.bus.Publish(events.Logout())
}

func (m *Manager) clearLocked() {
	m.token = ""
	m.state = LoggedOut{}
	if err := m.store.Clear(); err != nil {
		logger.Warn("Failed to clear persisted token", zap.Error(err))
	}
}

// SignInWithGoogle runs the identity provider's flow and exchanges the
// credential for a session. Without a provider it fails before any network
// call and without an event; later failures emit an error event.
func (m *Manager) SignInWithGoogle(ctx context.Context) error {
	if m.provider == nil {
		return fmt.Errorf("%w: no identity provider configured", ErrProviderUnavailable)
	}

	credential, err := m.provider.Credential(ctx)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return err
		}
		err = fmt.Errorf("%s sign-in failed: %w", m.provider.Name(), err)
		logger.Error("Identity flow failed", zap.Error(err))
		m.bus.Publish(events.Failure(err))
		return err
	}

	return m.SignInWithCredential(ctx, credential)
}

// SignInWithCredential exchanges an identity credential obtained elsewhere
// (for example pasted from a browser) for a session token.
func (m *Manager) SignInWithCredential(ctx context.Context, credential string) error {
	auth, err := m.exchange(ctx, credential)
	if err != nil {
		logger.Error("Identity exchange failed", zap.Error(err))
		m.bus.Publish(events.Failure(err))
		return err
	}

	m.mu.Lock()
	m.token = auth.Token
	m.state = LoggedIn{User: auth.User}
	if err := m.store.Save(auth.Token); err != nil {
		logger.Warn("Failed to persist session token", zap.Error(err))
	}
	m.mu.Unlock()

	logger.Info("Signed in",
		zap.String("user_id", auth.User.ID),
		zap.Int("expires_in", auth.ExpiresIn),
		logger.Token("token", auth.Token),
	)
	m.bus.Publish(events.Login(*auth))
	return nil
}

func (m *Manager) exchange(ctx context.Context, credential string) (*models.AuthResponse, error) {
	if credential == "" {
		return nil, errors.New("identity credential is empty")
	}

	resp, err := m.requester.Do(ctx, &requester.Request{
		Method: http.MethodPost,
		Path:   constants.PathGoogle,
		Body:   models.IdentityExchangeRequest{Token: credential},
		Auth:   m.requester.Auth(""),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !resp.OK() {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage("authentication failed")}
	}

	var auth models.AuthResponse
	if err := resp.DecodeJSON(&auth); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, errors.New("identity exchange returned no token")
	}
	return &auth, nil
}

// SignOut always ends logged out and always emits a logout event; telling
// the backend is best effort.
func (m *Manager) SignOut(ctx context.Context) {
	token := m.Token()
	if token != "" {
		resp, err := m.requester.Do(ctx, &requester.Request{
			Method: http.MethodPost,
			Path:   constants.PathLogout,
			Auth:   m.requester.Auth(token),
		})
		switch {
		case err != nil:
			logger.Warn("Failed to notify backend of sign-out", zap.Error(err))
		case !resp.OK():
			logger.Warn("Backend refused sign-out", zap.Int("status", resp.StatusCode))
		}
	}

	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()

	logger.Info("Signed out")
	m.bus.Publish(events.Logout())
}

// SendMessage relays text to the chatbot, once, without retry.
func (m *Manager) SendMessage(ctx context.Context, text string) (*models.ChatReply, error) {
	token := m.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message is empty")
	}

	resp, err := m.requester.Do(ctx, &requester.Request{
		Method: http.MethodPost,
		Path:   constants.PathChatbot,
		Body:   models.ChatRequest{Message: text},
		Auth:   m.requester.Auth(token),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if !resp.OK() {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage("error sending message")}
		if resp.StatusCode == http.StatusUnauthorized {
			m.invalidate(token)
		}
		return nil, apiErr
	}

	var reply models.ChatReply
	if err := resp.DecodeJSON(&reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ChatHistory is best effort: any failure yields an empty list.
func (m *Manager) ChatHistory(ctx context.Context, limit int) []models.ChatMessage {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	token := m.Token()
	if token == "" {
		return []models.ChatMessage{}
	}

	resp, err := m.requester.Do(ctx, &requester.Request{
		Method: http.MethodGet,
		Path:   constants.PathChatHistory,
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
		Auth:   m.requester.Auth(token),
	})
	if err != nil {
		logger.Warn("Failed to fetch chat history", zap.Error(err))
		return []models.ChatMessage{}
	}
	if !resp.OK() {
		logger.Warn("Chat history request failed", zap.Int("status", resp.StatusCode))
		return []models.ChatMessage{}
	}

	var body models.HistoryResponse
	if err := resp.DecodeJSON(&body); err != nil {
		logger.Warn("Malformed chat history", zap.Error(err))
		return []models.ChatMessage{}
	}
	if body.Messages == nil {
		return []models.ChatMessage{}
	}
	return body.Messages
}

// syncVerifyTimeout bounds the check of a token written by another process.
const syncVerifyTimeout = 10 * time.Second

// SyncToken reloads the token from the store after an outside change. A
// token removed elsewhere ends this session too; a replaced token is verified
// and announced as a login, or as a logout when it cannot be confirmed.
func (m *Manager) SyncToken() {
	token, err := m.store.Load()
	if err != nil {
		logger.Warn("Failed to reload session token", zap.Error(err))
		return
	}

	m.mu.Lock()
	if token == m.token {
		m.mu.Unlock()
		return
	}
	had := m.token != ""
	m.token = token
	m.state = LoggedOut{}
	m.mu.Unlock()

	logger.Info("Session token changed outside this process", zap.Bool("cleared", token == ""))
	if token == "" {
		if had {
			m.bus.Publish(events.Logout())
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncVerifyTimeout)
	defer cancel()
	user, ok := m.verify(ctx)
	switch {
	case ok:
		m.bus.Publish(events.Login(models.AuthResponse{User: *user, Token: token}))
	case m.Token() != token:
		// rejected and purged; verify already announced the logout
	case had:
		m.bus.Publish(events.Logout())
	}
}
