package providers

import (
	"context"
	"errors"
)

// ErrProviderUnavailable means the identity provider cannot be used at all
// (not configured, discovery failed). It is returned before any call to the
// chat backend.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// IdentityProvider obtains a third-party identity credential that the chat
// backend exchanges for a session token.
type IdentityProvider interface {
	// Name identifies the provider in logs and errors
	Name() string

	// Credential runs the provider's interactive flow and returns the raw
	// credential (for Google, the ID token)
	Credential(ctx context.Context) (string, error)
}
