package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// Audiences keep access tokens and form nonces from standing in for each other
const (
	accessAudience = "appconnect:access"
	nonceAudience  = "appconnect:nonce"
)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// nonceClaims wraps domain.NonceClaims
type nonceClaims struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
	jwt.RegisteredClaims
}

// Adapter handles authentication operations using bcrypt and JWT
type Adapter struct {
	jwtSecret  []byte
	bcryptCost int
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// NewAdapterWithCost creates a new auth adapter with custom bcrypt cost
func NewAdapterWithCost(jwtSecret string, bcryptCost int) *Adapter {
	return &Adapter{
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// HashPassword generates a bcrypt hash from a plaintext password
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken creates a signed access JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	jc := jwtClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		RegisteredClaims: a.registered(accessAudience, claims.UserID, claims.IssuedAt, claims.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString(a.jwtSecret)
}

// ParseToken validates an access JWT and extracts domain claims.
// Expired tokens yield domain.ErrTokenExpired, anything else domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	var claims jwtClaims
	if err := a.parse(tokenString, accessAudience, &claims); err != nil {
		return nil, err
	}

	return &domain.TokenClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// GenerateNonce signs a form nonce bound to a user and an action
func (a *Adapter) GenerateNonce(claims *domain.NonceClaims) (string, error) {
	nc := nonceClaims{
		UserID:           claims.UserID,
		Action:           claims.Action,
		RegisteredClaims: a.registered(nonceAudience, claims.UserID, claims.IssuedAt, claims.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, nc).SignedString(a.jwtSecret)
}

// ParseNonce validates a form nonce and extracts its claims
func (a *Adapter) ParseNonce(nonce string) (*domain.NonceClaims, error) {
	var claims nonceClaims
	if err := a.parse(nonce, nonceAudience, &claims); err != nil {
		return nil, err
	}

	return &domain.NonceClaims{
		UserID:    claims.UserID,
		Action:    claims.Action,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

func (a *Adapter) registered(audience, subject string, issuedAt, expiresAt int64) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(time.Unix(issuedAt, 0)),
		ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
	}
}

func (a *Adapter) parse(tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())

	if errors.Is(err, jwt.ErrTokenExpired) {
		return domain.ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return domain.ErrTokenInvalid
	}
	return nil
}
