package devserver

import (
	"errors"
	"slices"
	"strings"

	"github.com/brizzai/agency-chat/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidCredential = errors.New("invalid Google token")

// googleClaims are the ID token fields the dev backend reads.
type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// CredentialChecker turns a Google ID token into a user. The signature is
// not checked: the dev backend trusts whatever the local client sends and
// only makes sure the token has the expected shape and audience.
type CredentialChecker struct {
	audience string
	parser   *jwt.Parser
}

// NewCredentialChecker accepts tokens for audience; an empty audience
// accepts any.
func NewCredentialChecker(audience string) *CredentialChecker {
	return &CredentialChecker{audience: audience, parser: jwt.NewParser()}
}

// Check decodes the credential claims.
func (c *CredentialChecker) Check(credential string) (models.User, error) {
	var claims googleClaims
	if _, _, err := c.parser.ParseUnverified(strings.TrimSpace(credential), &claims); err != nil {
		return models.User{}, errInvalidCredential
	}
	if claims.Subject == "" && claims.Email == "" {
		return models.User{}, errInvalidCredential
	}
	if c.audience != "" && !slices.Contains(claims.Audience, c.audience) {
		return models.User{}, errInvalidCredential
	}

	id := claims.Subject
	if id == "" {
		id = claims.Email
	}
	return models.User{
		ID:      id,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
