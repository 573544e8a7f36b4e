package models

// User is the account the backend reports for a session. It is only ever
// decoded from a verify or sign-in response.
type User struct {
	ID      string `json:"id" yaml:"id"`
	Email   string `json:"email" yaml:"email"`
	Name    string `json:"name" yaml:"name"`
	Picture string `json:"picture,omitempty" yaml:"picture,omitempty"`
}

// DisplayName prefers the name and falls back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// AuthResponse is returned by the identity exchange.
type AuthResponse struct {
	Message   string `json:"message"`
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// VerifyResponse is returned by the verify endpoint.
type VerifyResponse struct {
	User User `json:"user"`
}

// IdentityExchangeRequest carries the third-party credential.
type IdentityExchangeRequest struct {
	Token string `json:"token"`
}
