// Package events carries session notifications from the session manager to
// any number of views.
package events

import (
	"sync"

	"github.com/brizzai/agency-chat/internal/models"
)

// Kind identifies an auth event.
type Kind int

const (
	KindLogin Kind = iota + 1
	KindLogout
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "login"
	case KindLogout:
		return "logout"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single notification. Auth is set for KindLogin, Err for KindError.
type Event struct {
	Kind Kind
	Auth *models.AuthResponse
	Err  error
}

// Login builds a login event carrying the exchange payload.
func Login(payload models.AuthResponse) Event {
	return Event{Kind: KindLogin, Auth: &payload}
}

// Logout builds a logout event.
func Logout() Event {
	return Event{Kind: KindLogout}
}

// Failure builds an error event.
func Failure(cause error) Event {
	return Event{Kind: KindError, Err: cause}
}

// Handler receives events on the publisher's goroutine.
type Handler func(Event)

type subscriber struct {
	handler Handler
	kinds   map[Kind]bool // nil means every kind
}

func (s subscriber) wants(k Kind) bool {
	return s.kinds == nil || s.kinds[k]
}

// Bus delivers each published event synchronously to the subscribers present
// at publish time. There is no replay and no ordering across subscribers.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]subscriber)}
}

// Subscribe registers handler for the given kinds, or every kind when none
// are given. The returned subscription must be released with Unsubscribe.
func (b *Bus) Subscribe(handler Handler, kinds ...Kind) *Subscription {
	s := subscriber{handler: handler}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = s
	b.mu.Unlock()

	return &Subscription{bus: b, id: id}
}

// Publish delivers e. Handlers run outside the lock, so they may subscribe,
// unsubscribe or publish themselves.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Kind) {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is a handle on a registered handler.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler; calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.id) })
}
