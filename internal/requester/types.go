package requester

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one call against the chat API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON when non-nil
	Body any
	// Auth is applied after the default headers; nil sends the request anonymously
	Auth AuthManager
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// ErrorMessage extracts the server's error text from a JSON body, looking at
// "error", "error_description" and "message" in that order, and falls back
// to fallback when none is present.
func (r *Response) ErrorMessage(fallback string) string {
	var body map[string]any
	if err := json.Unmarshal(r.Body, &body); err == nil {
		for _, key := range []string{"error", "error_description", "message"} {
			if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return fallback
}
