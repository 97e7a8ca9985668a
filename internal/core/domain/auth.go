package domain

import "time"

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsAdmin checks if the authenticated user is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *UserSummary `json:"user"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// NonceClaims binds a form nonce to one user and one action
type NonceClaims struct {
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Nonce actions accepted by the settings endpoints
const (
	NonceActionCreateApp    = "nonce_create_app"
	NonceActionAuthorizeApp = "nonce_authorize_app"
	NonceActionDeleteApp    = "gflow_delete_app"
	NonceActionSettingsJS   = "gflow_settings_js"
)

// IsKnownNonceAction reports whether action is one of the nonce actions
func IsKnownNonceAction(action string) bool {
	switch action {
	case NonceActionCreateApp, NonceActionAuthorizeApp, NonceActionDeleteApp, NonceActionSettingsJS:
		return true
	}
	return false
}
