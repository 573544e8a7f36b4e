package requester

import (
	"errors"
	"net/http"

	"github.com/brizzai/agency-chat/internal/auth/constants"
)

// ErrMissingToken is returned when bearer auth is applied without a token.
var ErrMissingToken = errors.New("missing bearer token")

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// BearerAuth sets the Authorization header from a session token.
type BearerAuth string

// ApplyAuth adds authentication to the request
func (b BearerAuth) ApplyAuth(req *http.Request) error {
	if b == "" {
		return ErrMissingToken
	}
	req.Header.Set(constants.AuthHeaderName, constants.AuthHeaderPrefix+string(b))
	return nil
}

// HeaderAuth sets an arbitrary header, e.g. an API key in front of the backend.
type HeaderAuth struct {
	Header string
	Value  string
}

func (h HeaderAuth) ApplyAuth(req *http.Request) error {
	header := h.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, h.Value)
	return nil
}

// ChainAuth applies several managers in order.
type ChainAuth []AuthManager

func (c ChainAuth) ApplyAuth(req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.ApplyAuth(req); err != nil {
			return err
		}
	}
	return nil
}
