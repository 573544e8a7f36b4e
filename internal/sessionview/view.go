// Package sessionview mirrors the session manager into a small set of flags
// that an interface can render: authenticated, loading and the current user.
package sessionview

import (
	"context"
	"sync"

	"github.com/brizzai/agency-chat/internal/events"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/session"
	"go.uber.org/zap"
)

// Snapshot is the state a view exposes at one instant.
type Snapshot struct {
	IsAuthenticated bool
	IsLoading       bool
	User            *models.User
	// LastError is the cause of the most recent error event, if any.
	LastError error
}

// View is one consumer's projection of a shared Manager. Several views may
// observe the same manager; each keeps its own flags.
type View struct {
	mgr *session.Manager

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64
	sub     *events.Subscription
	closed  bool
	changes chan Snapshot
}

func New(mgr *session.Manager) *View {
	return &View{
		mgr:     mgr,
		changes: make(chan Snapshot, 1),
	}
}

// Activate subscribes to auth events and starts the initial authentication
// check in the background. Calling it twice has no effect.
func (v *View) Activate(ctx context.Context) {
	v.mu.Lock()
	if v.closed || v.sub != nil {
		v.mu.Unlock()
		return
	}
	v.sub = v.mgr.Events().Subscribe(v.handle, events.KindLogin, events.KindLogout, events.KindError)
	v.snap.IsLoading = true
	v.gen++
	gen := v.gen
	v.notifyLocked()
	v.mu.Unlock()

	go v.check(ctx, gen)
}

func (v *View) check(ctx context.Context, gen uint64) {
	user := v.mgr.CurrentUser(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.gen != gen {
		logger.Debug("Discarding stale authentication check")
		return
	}
	v.snap.IsAuthenticated = user != nil
	v.snap.User = user
	v.snap.IsLoading = false
	v.notifyLocked()
}

func (v *View) handle(e events.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.gen++

	switch e.Kind {
	case events.KindLogin:
		user := e.Auth.User
		v.snap.IsAuthenticated = true
		v.snap.User = &user
		v.snap.LastError = nil
	case events.KindLogout:
		v.snap.IsAuthenticated = false
		v.snap.User = nil
	case events.KindError:
		v.snap.LastError = e.Err
	}
	v.snap.IsLoading = false
	v.notifyLocked()
}

// notifyLocked replaces any unread snapshot with the current one.
func (v *View) notifyLocked() {
	s := v.snap
	select {
	case <-v.changes:
	default:
	}
	select {
	case v.changes <- s:
	default:
	}
}

func (v *View) setLoading(loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.snap.IsLoading == loading {
		return
	}
	v.snap.IsLoading = loading
	v.notifyLocked()
}

// Snapshot returns the current flags.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Changes delivers the latest snapshot after every change. Unread snapshots
// are replaced, so a slow reader only ever sees the newest state. The
// channel is closed by Close.
func (v *View) Changes() <-chan Snapshot {
	return v.changes
}

// SignIn runs the Google sign-in flow. Loading is cleared by the resulting
// event, or here when the flow failed without one.
func (v *View) SignIn(ctx context.Context) error {
	v.setLoading(true)
	if err := v.mgr.SignInWithGoogle(ctx); err != nil {
		logger.Warn("Sign-in failed", zap.Error(err))
		v.setLoading(false)
		return err
	}
	return nil
}

// SignInWithCredential is SignIn for a credential obtained out of band.
func (v *View) SignInWithCredential(ctx context.Context, credential string) error {
	v.setLoading(true)
	if err := v.mgr.SignInWithCredential(ctx, credential); err != nil {
		v.setLoading(false)
		return err
	}
	return nil
}

// SignOut always ends logged out; the logout event clears loading.
func (v *View) SignOut(ctx context.Context) {
	v.setLoading(true)
	v.mgr.SignOut(ctx)
}

// SendMessage passes straight through to the manager.
func (v *View) SendMessage(ctx context.Context, text string) (*models.ChatReply, error) {
	return v.mgr.SendMessage(ctx, text)
}

// ChatHistory passes straight through to the manager.
func (v *View) ChatHistory(ctx context.Context, limit int) []models.ChatMessage {
	return v.mgr.ChatHistory(ctx, limit)
}

// Close unsubscribes and discards any check still in flight.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.gen++
	if v.sub != nil {
		v.sub.Unsubscribe()
	}
	close(v.changes)
}
