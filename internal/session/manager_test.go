package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brizzai/agency-chat/internal/auth/providers"
	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/events"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/requester"
	"github.com/brizzai/agency-chat/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = models.User{ID: "1", Email: "a@b.com", Name: "Ana"}

// fakeBackend records calls per path and answers with per-path handlers.
type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{t: t, calls: map[string]int{}, handlers: map[string]http.HandlerFunc{}}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		h := b.handlers[r.URL.Path]
		b.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = h
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requireBearer(t *testing.T, want string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+want, r.Header.Get("Authorization"))
		next(w, r)
	}
}

type stubProvider struct {
	credential string
	err        error
}

func (s stubProvider) Name() string { return "stub" }
func (s stubProvider) Credential(context.Context) (string, error) {
	return s.credential, s.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newManager(t *testing.T, b *fakeBackend, store tokenstore.Store, provider providers.IdentityProvider) (*Manager, *recorder) {
	t.Helper()
	m := NewManager(Params{
		Requester: requester.NewHTTPRequester(&config.APIConfig{BaseURL: b.srv.URL}),
		Store:     store,
		Bus:       events.NewBus(),
		Provider:  provider,
	})
	rec := &recorder{}
	sub := m.Events().Subscribe(rec.handle)
	t.Cleanup(sub.Unsubscribe)
	return m, rec
}

func TestManager_RestoresPersistedToken(t *testing.T) {
	b := newFakeBackend(t)
	m, _ := newManager(t, b, tokenstore.NewMemoryStore("T0"), nil)
	assert.Equal(t, "T0", m.Token())
	assert.IsType(t, LoggedOut{}, m.State(), "restored token is not trusted until verified")
}

func TestManager_IsAuthenticated(t *testing.T) {
	t.Run("no token makes no call", func(t *testing.T) {
		b := newFakeBackend(t)
		m, _ := newManager(t, b, tokenstore.NewMemoryStore(""), nil)
		assert.False(t, m.IsAuthenticated(context.Background()))
		assert.Zero(t, b.total())
	})

	t.Run("accepted token", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/verify", requireBearer(t, "T0", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"user": ana})
		}))
		m, rec := newManager(t, b, tokenstore.NewMemoryStore("T0"), nil)

		assert.True(t, m.IsAuthenticated(context.Background()))
		assert.Equal(t, LoggedIn{User: ana}, m.State())
		assert.Equal(t, "T0", m.Token())
		assert.Empty(t, rec.kinds())
	})

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run("rejected token is purged "+http.StatusText(status), func(t *testing.T) {
			b := newFakeBackend(t)
			b.handle("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]string{"error": "nope"})
			})
			store := tokenstore.NewMemoryStore("T0")
			m, rec := newManager(t, b, store, nil)

			assert.False(t, m.IsAuthenticated(context.Background()))
			assert.Empty(t, m.Token())
			persisted, _ := store.Load()
			assert.Empty(t, persisted)
			assert.Equal(t, []events.Kind{events.KindLogout}, rec.kinds())
		})
	}

	t.Run("transport failure keeps the token", func(t *testing.T) {
		b := newFakeBackend(t)
		store := tokenstore.NewMemoryStore("T0")
		m, rec := newManager(t, b, store, nil)
		b.srv.Close()

		assert.False(t, m.IsAuthenticated(context.Background()))
		assert.Equal(t, "T0", m.Token())
		persisted, _ := store.Load()
		assert.Equal(t, "T0", persisted)
		assert.IsType(t, LoggedOut{}, m.State())
		assert.Empty(t, rec.kinds())
	})

	t.Run("malformed body is inconclusive", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		})
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T0"), nil)
		assert.False(t, m.IsAuthenticated(context.Background()))
		assert.Equal(t, "T0", m.Token())
	})
}

func TestManager_SignInThenCurrentUser(t *testing.T) {
	b := newFakeBackend(t)
	b.handle("/auth/google", func(w http.ResponseWriter, r *http.Request) {
		var req models.IdentityExchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "google-credential", req.Token)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok", "user": ana, "token": "T1", "expires_in": 3600,
		})
	})
	b.handle("/auth/verify", requireBearer(t, "T1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": ana})
	}))

	store := tokenstore.NewMemoryStore("")
	m, rec := newManager(t, b, store, stubProvider{credential: "google-credential"})

	require.NoError(t, m.SignInWithGoogle(context.Background()))
	assert.Equal(t, "T1", m.Token())
	persisted, _ := store.Load()
	assert.Equal(t, "T1", persisted)

	require.Equal(t, []events.Kind{events.KindLogin}, rec.kinds())
	login := rec.events[0].Auth
	assert.Equal(t, "T1", login.Token)
	assert.Equal(t, 3600, login.ExpiresIn)

	user := m.CurrentUser(context.Background())
	require.NotNil(t, user)
	assert.Equal(t, "Ana", user.Name)
}

func TestManager_SignInFailures(t *testing.T) {
	t.Run("no provider fails fast without network or event", func(t *testing.T) {
		b := newFakeBackend(t)
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""), nil)

		err := m.SignInWithGoogle(context.Background())
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Zero(t, b.total())
		assert.Empty(t, rec.kinds())
	})

	t.Run("provider unavailable", func(t *testing.T) {
		b := newFakeBackend(t)
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""),
			stubProvider{err: providers.ErrProviderUnavailable})

		assert.ErrorIs(t, m.SignInWithGoogle(context.Background()), ErrProviderUnavailable)
		assert.Zero(t, b.total())
		assert.Empty(t, rec.kinds())
	})

	t.Run("identity flow error emits error event", func(t *testing.T) {
		b := newFakeBackend(t)
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""),
			stubProvider{err: errors.New("user closed the popup")})

		err := m.SignInWithGoogle(context.Background())
		assert.ErrorContains(t, err, "user closed the popup")
		assert.Equal(t, []events.Kind{events.KindError}, rec.kinds())
		assert.Zero(t, b.total())
	})

	t.Run("backend rejects credential", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/google", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid Google token"})
		})
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""), stubProvider{credential: "bad"})

		err := m.SignInWithGoogle(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Invalid Google token", apiErr.Message)
		assert.Empty(t, m.Token())
		assert.Equal(t, []events.Kind{events.KindError}, rec.kinds())
		assert.Equal(t, err, rec.events[0].Err)
	})

	t.Run("backend error without message uses fallback", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/google", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		m, _ := newManager(t, b, tokenstore.NewMemoryStore(""), stubProvider{credential: "c"})

		err := m.SignInWithGoogle(context.Background())
		assert.ErrorContains(t, err, "authentication failed")
	})

	t.Run("unreachable backend", func(t *testing.T) {
		b := newFakeBackend(t)
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""), stubProvider{credential: "c"})
		b.srv.Close()

		assert.ErrorIs(t, m.SignInWithGoogle(context.Background()), ErrTransport)
		assert.Equal(t, []events.Kind{events.KindError}, rec.kinds())
	})
}

func TestManager_SendsAPIKey(t *testing.T) {
	requireKey := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "site-key", r.Header.Get("X-Agency-Key"))
			next(w, r)
		}
	}
	b := newFakeBackend(t)
	b.handle("/auth/google", requireKey(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "user": ana, "token": "T1"})
	}))
	b.handle("/chatbot", requireKey(requireBearer(t, "T1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "hi"})
	})))

	m := NewManager(Params{
		Requester: requester.NewHTTPRequester(&config.APIConfig{
			BaseURL:      b.srv.URL,
			APIKey:       "site-key",
			APIKeyHeader: "X-Agency-Key",
		}),
		Store:    tokenstore.NewMemoryStore(""),
		Bus:      events.NewBus(),
		Provider: stubProvider{credential: "c"},
	})

	require.NoError(t, m.SignInWithGoogle(context.Background()))
	reply, err := m.SendMessage(context.Background(), "Hola")
	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Message)
	assert.Equal(t, 1, b.count("/auth/google"))
	assert.Equal(t, 1, b.count("/chatbot"))
}

func TestManager_SignOut(t *testing.T) {
	t.Run("sign-in then sign-out ends unauthenticated", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/google", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "user": ana, "token": "T1", "expires_in": 3600})
		})
		var logoutCalls atomic.Int32
		b.handle("/auth/logout", requireBearer(t, "T1", func(w http.ResponseWriter, r *http.Request) {
			logoutCalls.Add(1)
			w.WriteHeader(http.StatusNoContent)
		}))
		store := tokenstore.NewMemoryStore("")
		m, rec := newManager(t, b, store, stubProvider{credential: "c"})

		require.NoError(t, m.SignInWithGoogle(context.Background()))
		m.SignOut(context.Background())

		assert.EqualValues(t, 1, logoutCalls.Load())
		assert.False(t, m.IsAuthenticated(context.Background()))
		persisted, _ := store.Load()
		assert.Empty(t, persisted)
		assert.Equal(t, []events.Kind{events.KindLogin, events.KindLogout}, rec.kinds())
		assert.Equal(t, 0, b.count("/auth/verify"), "no token, no verify call")
	})

	t.Run("backend failure still signs out", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		store := tokenstore.NewMemoryStore("T1")
		m, rec := newManager(t, b, store, nil)

		m.SignOut(context.Background())
		assert.Empty(t, m.Token())
		assert.Equal(t, []events.Kind{events.KindLogout}, rec.kinds())
	})

	t.Run("unreachable backend still signs out", func(t *testing.T) {
		b := newFakeBackend(t)
		store := tokenstore.NewMemoryStore("T1")
		m, rec := newManager(t, b, store, nil)
		b.srv.Close()

		m.SignOut(context.Background())
		assert.Empty(t, m.Token())
		persisted, _ := store.Load()
		assert.Empty(t, persisted)
		assert.Equal(t, []events.Kind{events.KindLogout}, rec.kinds())
	})

	t.Run("without token no call is made", func(t *testing.T) {
		b := newFakeBackend(t)
		m, rec := newManager(t, b, tokenstore.NewMemoryStore(""), nil)
		m.SignOut(context.Background())
		assert.Zero(t, b.total())
		assert.Equal(t, []events.Kind{events.KindLogout}, rec.kinds())
	})
}

func TestManager_SendMessage(t *testing.T) {
	t.Run("no token rejects without network", func(t *testing.T) {
		b := newFakeBackend(t)
		m, _ := newManager(t, b, tokenstore.NewMemoryStore(""), nil)

		reply, err := m.SendMessage(context.Background(), "Hola")
		assert.Nil(t, reply)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Zero(t, b.total())
	})

	t.Run("relays the reply", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chatbot", requireBearer(t, "T1", func(w http.ResponseWriter, r *http.Request) {
			var req models.ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Hola", req.Message)
			writeJSON(w, http.StatusOK, map[string]string{"message": "¡Hola! ¿En qué puedo ayudarte?"})
		}))
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

		reply, err := m.SendMessage(context.Background(), "Hola")
		require.NoError(t, err)
		assert.Equal(t, "¡Hola! ¿En qué puedo ayudarte?", reply.Message)
		assert.Equal(t, 1, b.count("/chatbot"))
	})

	t.Run("server error carries server message, no retry", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chatbot", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "model overloaded"})
		})
		m, rec := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

		_, err := m.SendMessage(context.Background(), "Hola")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "model overloaded", apiErr.Message)
		assert.NotErrorIs(t, err, ErrSessionInvalid)
		assert.Equal(t, 1, b.count("/chatbot"))
		assert.Equal(t, "T1", m.Token())
		assert.Empty(t, rec.kinds())
	})

	t.Run("generic fallback message", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chatbot", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

		_, err := m.SendMessage(context.Background(), "Hola")
		assert.ErrorContains(t, err, "error sending message")
	})

	t.Run("401 ends the session", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chatbot", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		})
		store := tokenstore.NewMemoryStore("T1")
		m, rec := newManager(t, b, store, nil)

		_, err := m.SendMessage(context.Background(), "Hola")
		assert.ErrorIs(t, err, ErrSessionInvalid)
		assert.Empty(t, m.Token())
		assert.Equal(t, []events.Kind{events.KindLogout}, rec.kinds())
	})

	t.Run("transport failure keeps token", func(t *testing.T) {
		b := newFakeBackend(t)
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)
		b.srv.Close()

		_, err := m.SendMessage(context.Background(), "Hola")
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, "T1", m.Token())
	})

	t.Run("blank message", func(t *testing.T) {
		b := newFakeBackend(t)
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)
		_, err := m.SendMessage(context.Background(), "   ")
		assert.Error(t, err)
		assert.Zero(t, b.total())
	})
}

func TestManager_ChatHistory(t *testing.T) {
	t.Run("no token resolves empty", func(t *testing.T) {
		b := newFakeBackend(t)
		m, _ := newManager(t, b, tokenstore.NewMemoryStore(""), nil)

		history := m.ChatHistory(context.Background(), 10)
		assert.NotNil(t, history)
		assert.Empty(t, history)
		assert.Zero(t, b.total())
	})

	t.Run("default limit and decoding", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chat/history", requireBearer(t, "T1", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]any{"messages": []map[string]any{
				{"id": "1", "message": "Hola", "sender": "user", "timestamp": "2024-05-01T10:00:00Z"},
				{"id": "2", "message": "¡Hola!", "sender": "bot", "timestamp": "2024-05-01T10:00:01Z"},
			}})
		}))
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

		history := m.ChatHistory(context.Background(), 0)
		require.Len(t, history, 2)
		assert.Equal(t, models.SenderBot, history[1].Sender)
		assert.Equal(t, "¡Hola!", history[1].Text)
	})

	t.Run("unreadable timestamp keeps the rest", func(t *testing.T) {
		b := newFakeBackend(t)
		b.handle("/chat/history", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"messages": []map[string]any{
				{"id": "1", "message": "Hola", "sender": "user", "timestamp": "Mon Jan 01 2024"},
				{"id": "2", "message": "¡Hola!", "sender": "bot", "timestamp": 1700000000000},
			}})
		})
		m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

		history := m.ChatHistory(context.Background(), 10)
		require.Len(t, history, 2)
		assert.Equal(t, "Hola", history[0].Text)
		assert.True(t, history[0].Timestamp.IsZero())
		assert.Equal(t, 2023, history[1].Timestamp.Year())
	})

	failures := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"bad json":     func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{")) },
		"null list":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"messages":null}`)) },
	}
	for name, h := range failures {
		t.Run(name+" resolves empty", func(t *testing.T) {
			b := newFakeBackend(t)
			b.handle("/chat/history", h)
			m, _ := newManager(t, b, tokenstore.NewMemoryStore("T1"), nil)

			history := m.ChatHistory(context.Background(), 5)
			assert.NotNil(t, history)
			assert.Empty(t, history)
			assert.Equal(t, "T1", m.Token(), "history failures never end the session")
		})
	}
}

func TestManager_SyncToken(t *testing.T) {
	bea := models.User{ID: "2", Email: "bea@b.com", Name: "Bea"}
	b := newFakeBackend(t)
	b.handle("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": bea})
	})
	store := tokenstore.NewMemoryStore("T1")
	m, rec := newManager(t, b, store, nil)

	m.SyncToken()
	assert.Empty(t, rec.kinds(), "unchanged token is a no-op")
	assert.Zero(t, b.total())

	t.Run("replaced token announces the new user", func(t *testing.T) {
		require.NoError(t, store.Save("T2"))
		m.SyncToken()
		assert.Equal(t, "T2", m.Token())
		require.Equal(t, []events.Kind{events.KindLogin}, rec.kinds())
		assert.Equal(t, "Bea", rec.events[0].Auth.User.Name)
		assert.Equal(t, "T2", rec.events[0].Auth.Token)
		assert.Equal(t, LoggedIn{User: bea}, m.State())
	})

	t.Run("rejected replacement logs out once", func(t *testing.T) {
		require.NoError(t, store.Save("T3"))
		m.SyncToken()
		assert.Empty(t, m.Token())
		assert.Equal(t, []events.Kind{events.KindLogin, events.KindLogout}, rec.kinds())
	})

	t.Run("cleared elsewhere", func(t *testing.T) {
		require.NoError(t, store.Save("T2"))
		m.SyncToken()
		require.NoError(t, store.Clear())
		m.SyncToken()
		assert.Empty(t, m.Token())
		assert.Equal(t, []events.Kind{
			events.KindLogin, events.KindLogout, events.KindLogin, events.KindLogout,
		}, rec.kinds())
	})
}
