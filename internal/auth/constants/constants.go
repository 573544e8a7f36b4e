package constants

const (
	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// TokenStorageKey names the persisted session token entry
	TokenStorageKey = "auth_token"
)

// Chat API paths
const (
	PathVerify      = "/auth/verify"
	PathGoogle      = "/auth/google"
	PathLogout      = "/auth/logout"
	PathChatbot     = "/chatbot"
	PathChatHistory = "/chat/history"
)

// DefaultHistoryLimit is used when callers ask for a non-positive limit.
const DefaultHistoryLimit = 50

// OAuth scopes
var DefaultScopes = []string{"openid", "profile", "email"}
