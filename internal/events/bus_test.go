package events

import (
	"errors"
	"testing"

	"github.com/brizzai/agency-chat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()

	var all, logins []Event
	subAll := bus.Subscribe(func(e Event) { all = append(all, e) })
	subLogin := bus.Subscribe(func(e Event) { logins = append(logins, e) }, KindLogin)
	defer subAll.Unsubscribe()
	defer subLogin.Unsubscribe()

	bus.Publish(Login(models.AuthResponse{Token: "T1", User: models.User{Name: "Ana"}}))
	bus.Publish(Logout())
	bus.Publish(Failure(errors.New("boom")))

	require.Len(t, all, 3)
	assert.Equal(t, KindLogin, all[0].Kind)
	assert.Equal(t, "Ana", all[0].Auth.User.Name)
	assert.Equal(t, KindLogout, all[1].Kind)
	assert.EqualError(t, all[2].Err, "boom")

	require.Len(t, logins, 1)
	assert.Equal(t, "T1", logins[0].Auth.Token)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	count := 0
	sub := bus.Subscribe(func(Event) { count++ })
	assert.Equal(t, 1, bus.Len())

	bus.Publish(Logout())
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(Logout())

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_LateSubscriberMissesPastEvents(t *testing.T) {
	bus := NewBus()
	bus.Publish(Logout())

	got := 0
	sub := bus.Subscribe(func(Event) { got++ })
	defer sub.Unsubscribe()
	assert.Zero(t, got)
}

func TestBus_HandlerMayUnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus()
	var sub *Subscription
	calls := 0
	sub = bus.Subscribe(func(Event) {
		calls++
		sub.Unsubscribe()
	})

	bus.Publish(Logout())
	bus.Publish(Logout())
	assert.Equal(t, 1, calls)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "login", KindLogin.String())
	assert.Equal(t, "logout", KindLogout.String())
	assert.Equal(t, "error", KindError.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
