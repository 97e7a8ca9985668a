package driven

import "github.com/custodia-labs/appconnect/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// This does NOT handle storage - use UserStore for account persistence.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)

	// Nonce operations for form submissions
	GenerateNonce(claims *domain.NonceClaims) (string, error)
	ParseNonce(nonce string) (*domain.NonceClaims, error)
}
