package driving

import (
	"context"

	"github.com/custodia-labs/appconnect/internal/core/domain"
)

// AuthService handles administrator authentication and form nonces
type AuthService interface {
	// Authenticate validates credentials and issues an access token
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// CreateAdmin creates an administrator account. Used to bootstrap a deployment.
	CreateAdmin(ctx context.Context, email, name, password string) (*domain.User, error)

	// IssueNonce creates a form nonce bound to the user and action
	IssueNonce(ctx context.Context, userID, action string) (string, error)

	// VerifyNonce checks a submitted nonce.
	// Returns domain.ErrCSRFInvalid when it is missing, expired, or bound elsewhere.
	VerifyNonce(ctx context.Context, userID, action, nonce string) error
}
