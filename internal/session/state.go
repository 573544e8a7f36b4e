package session

import "github.com/brizzai/agency-chat/internal/models"

// State is the manager's view of the session. Only LoggedIn carries a
// user, so "user without a session" cannot be expressed.
type State interface {
	String() string
	isState()
}

// LoggedOut: no token, or a token that has not been verified yet.
type LoggedOut struct{}

// Verifying: a verify call is in flight.
type Verifying struct{}

// LoggedIn: the token was accepted and the backend reported User.
type LoggedIn struct {
	User models.User
}

func (LoggedOut) String() string { return "logged_out" }
func (Verifying) String() string { return "verifying" }
func (LoggedIn) String() string  { return "logged_in" }

func (LoggedOut) isState() {}
func (Verifying) isState() {}
func (LoggedIn) isState()  {}
