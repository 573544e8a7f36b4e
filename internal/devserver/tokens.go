package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brizzai/agency-chat/internal/auth/middleware"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "agency-chat-devserver"

var errTokenRevoked = errors.New("token has been revoked")

// sessionClaims are carried by the session tokens the dev backend issues.
type sessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 session tokens and remembers revoked ones until
// they would have expired anyway.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenIssuer uses key for signing; an empty key gets a random one, so
// tokens do not survive a restart.
func NewTokenIssuer(key string, ttl time.Duration) (*TokenIssuer, error) {
	secret := []byte(key)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	return &TokenIssuer{
		key:     secret,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue signs a token for user. It returns the token and its lifetime in
// seconds.
func (t *TokenIssuer) Issue(user models.User) (string, int, error) {
	now := t.now()
	claims := sessionClaims{
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int(t.ttl / time.Second), nil
}

// Validate implements middleware.TokenValidator.
func (t *TokenIssuer) Validate(_ context.Context, token string) (*middleware.AuthInfo, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, errTokenRevoked
	}

	return &middleware.AuthInfo{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		TokenID: claims.ID,
	}, nil
}

// Revoke invalidates the token with the given id.
func (t *TokenIssuer) Revoke(tokenID string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, id)
		}
	}
	t.revoked[tokenID] = now.Add(t.ttl)
}
