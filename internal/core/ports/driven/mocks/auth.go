package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure MockAuthAdapter implements AuthAdapter
var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

const nonceTokenPrefix = "nonce."

// MockAuthAdapter is a mock implementation of AuthAdapter for testing.
// It uses plain text password comparison and base64-encoded JSON for tokens.
// NOT secure - only for testing.
type MockAuthAdapter struct{}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// HashPassword returns the password as-is (for testing only)
func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return password, nil
}

// VerifyPassword compares password with hash directly (for testing only)
func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return password == hash
}

// GenerateToken creates a base64-encoded JSON token from claims
func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	return encodeClaims(claims)
}

// ParseToken decodes a base64-encoded JSON token and returns claims
func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	var claims domain.TokenClaims
	if err := decodeClaims(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// GenerateNonce creates a prefixed base64-encoded JSON nonce from claims
func (m *MockAuthAdapter) GenerateNonce(claims *domain.NonceClaims) (string, error) {
	encoded, err := encodeClaims(claims)
	if err != nil {
		return "", err
	}
	return nonceTokenPrefix + encoded, nil
}

// ParseNonce decodes a nonce created by GenerateNonce
func (m *MockAuthAdapter) ParseNonce(nonce string) (*domain.NonceClaims, error) {
	encoded, ok := strings.CutPrefix(nonce, nonceTokenPrefix)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	var claims domain.NonceClaims
	if err := decodeClaims(encoded, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func encodeClaims(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeClaims(token string, v any) error {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return domain.ErrTokenInvalid
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrTokenInvalid
	}
	return nil
}
