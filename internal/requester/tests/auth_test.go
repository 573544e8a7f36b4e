package tests

import (
	"net/http"
	"testing"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/requester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthManagers_ApplyAuth(t *testing.T) {
	tests := []struct {
		name      string
		auth      requester.AuthManager
		wantErr   error
		checkAuth func(t *testing.T, req *http.Request)
	}{
		{
			name: "Bearer Auth",
			auth: requester.BearerAuth("test-token"),
			checkAuth: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			},
		},
		{
			name:      "Bearer Auth without token",
			auth:      requester.BearerAuth(""),
			wantErr:   requester.ErrMissingToken,
			checkAuth: func(t *testing.T, req *http.Request) {},
		},
		{
			name: "Header Auth default header",
			auth: requester.HeaderAuth{Value: "key-1"},
			checkAuth: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "key-1", req.Header.Get("X-API-Key"))
			},
		},
		{
			name: "Chain applies every manager",
			auth: requester.ChainAuth{
				requester.HeaderAuth{Header: "X-Site", Value: "agency"},
				nil,
				requester.BearerAuth("chained"),
			},
			checkAuth: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "agency", req.Header.Get("X-Site"))
				assert.Equal(t, "Bearer chained", req.Header.Get("Authorization"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			err := tt.auth.ApplyAuth(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.checkAuth(t, req)
		})
	}
}

func TestHTTPRequester_Auth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.APIConfig
		token      string
		wantNil    bool
		wantKey    string
		wantBearer string
	}{
		{name: "anonymous", wantNil: true},
		{name: "token only", token: "tok", wantBearer: "Bearer tok"},
		{name: "key only", cfg: config.APIConfig{APIKey: "k1", APIKeyHeader: "X-API-Key"}, wantKey: "k1"},
		{name: "key and token", cfg: config.APIConfig{APIKey: "k1", APIKeyHeader: "X-API-Key"}, token: "tok", wantKey: "k1", wantBearer: "Bearer tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.BaseURL = "http://localhost"
			auth := requester.NewHTTPRequester(&cfg).Auth(tt.token)
			if tt.wantNil {
				assert.Nil(t, auth)
				return
			}

			require.NotNil(t, auth)
			req := &http.Request{Header: make(http.Header)}
			require.NoError(t, auth.ApplyAuth(req))
			assert.Equal(t, tt.wantKey, req.Header.Get("X-API-Key"))
			assert.Equal(t, tt.wantBearer, req.Header.Get("Authorization"))
		})
	}
}
