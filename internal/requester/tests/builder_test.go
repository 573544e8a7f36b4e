package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"testing"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/requester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestBuilder_BuildRequest(t *testing.T) {
	builder := requester.NewHTTPRequestBuilder(&config.APIConfig{
		BaseURL: "https://api.example.com/",
		Headers: map[string]string{"X-Site": "agency"},
	})

	tests := []struct {
		name    string
		req     *requester.Request
		wantErr bool
		check   func(t *testing.T, body map[string]any, rawURL string, headers map[string]string)
	}{
		{
			name: "GET with query",
			req: &requester.Request{
				Method: "GET",
				Path:   "/chat/history",
				Query:  url.Values{"limit": {"10"}},
				Auth:   requester.BearerAuth("T1"),
			},
			check: func(t *testing.T, body map[string]any, rawURL string, headers map[string]string) {
				assert.Nil(t, body)
				assert.Equal(t, "https://api.example.com/chat/history?limit=10", rawURL)
				assert.Equal(t, "Bearer T1", headers["Authorization"])
				assert.Equal(t, "agency", headers["X-Site"])
			},
		},
		{
			name: "POST with JSON body and no auth",
			req: &requester.Request{
				Method: "POST",
				Path:   "auth/google",
				Body:   map[string]string{"token": "cred"},
			},
			check: func(t *testing.T, body map[string]any, rawURL string, headers map[string]string) {
				assert.Equal(t, "https://api.example.com/auth/google", rawURL)
				assert.Equal(t, "cred", body["token"])
				assert.Equal(t, "application/json", headers["Content-Type"])
				assert.Empty(t, headers["Authorization"])
			},
		},
		{
			name:    "Auth failure aborts",
			req:     &requester.Request{Method: "POST", Path: "/chatbot", Auth: requester.BearerAuth("")},
			wantErr: true,
		},
		{
			name:    "Unencodable body",
			req:     &requester.Request{Method: "POST", Path: "/chatbot", Body: map[string]any{"bad": make(chan int)}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpReq, err := builder.BuildRequest(context.Background(), tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var body map[string]any
			if httpReq.Body != nil {
				raw, err := io.ReadAll(httpReq.Body)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(raw, &body))
			}
			headers := map[string]string{}
			for k := range httpReq.Header {
				headers[k] = httpReq.Header.Get(k)
			}
			tt.check(t, body, httpReq.URL.String(), headers)
		})
	}
}

func TestResponse_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error":"token expired"}`, want: "token expired"},
		{name: "message field", body: `{"message":"rate limited"}`, want: "rate limited"},
		{name: "blank error falls through", body: `{"error":" ","message":"m"}`, want: "m"},
		{name: "not json", body: `<html>502</html>`, want: "fallback"},
		{name: "empty", body: ``, want: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &requester.Response{StatusCode: 400, Body: []byte(tt.body)}
			assert.Equal(t, tt.want, resp.ErrorMessage("fallback"))
		})
	}
}
