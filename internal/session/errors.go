package session

import (
	"errors"
	"fmt"

	"github.com/brizzai/agency-chat/internal/auth/providers"
)

var (
	// ErrNotAuthenticated: a privileged call was made without a token.
	ErrNotAuthenticated = errors.New("user is not authenticated")
	// ErrSessionInvalid: the server rejected the token and it was purged.
	ErrSessionInvalid = errors.New("session is invalid or expired")
	// ErrTransport: the backend could not be reached; the token is kept.
	ErrTransport = errors.New("chat backend unreachable")
	// ErrProviderUnavailable: sign-in cannot start, nothing was sent.
	ErrProviderUnavailable = providers.ErrProviderUnavailable
)

// APIError is a non-2xx reply from the chat backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat API error %d: %s", e.StatusCode, e.Message)
}

// Is lets a 401 match ErrSessionInvalid.
func (e *APIError) Is(target error) bool {
	return target == ErrSessionInvalid && e.StatusCode == 401
}
