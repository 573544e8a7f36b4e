package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/brizzai/agency-chat/internal/auth/constants"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/utils"
	"go.uber.org/zap"
)

// AuthContext is the key type for the context
type authContextKey string

const (
	// AuthContextKey is used to store auth info in the request context
	AuthContextKey authContextKey = "auth"
)

// AuthInfo represents the authentication information stored in context
type AuthInfo struct {
	UserID  string
	Email   string
	Name    string
	Picture string
	// TokenID identifies the session token, used for revocation
	TokenID string
	Token   string
}

// TokenValidator checks a bearer token and reports who it belongs to.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// Authenticate rejects requests without a valid bearer token with 401.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing_token", "Authentication required")
				return
			}

			info, err := validator.Validate(r.Context(), token)
			if err != nil {
				logger.Debug("Rejected bearer token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeUnauthorized(w, "invalid_token", "Invalid or expired token")
				return
			}
			info.Token = token

			ctx := context.WithValue(r.Context(), AuthContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the AuthInfo stored by Authenticate.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(AuthContextKey).(*AuthInfo)
	return info, ok && info != nil
}

// ExtractToken extracts the Bearer token from the request
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get(constants.AuthHeaderName)
	if strings.HasPrefix(authHeader, constants.AuthHeaderPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, constants.AuthHeaderPrefix))
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="agency-chat", error="%s", error_description="%s"`, code, message))
	utils.WriteError(w, http.StatusUnauthorized, message)
}
