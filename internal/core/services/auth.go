package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
	"github.com/custodia-labs/appconnect/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

const (
	defaultTokenTTL = 24 * time.Hour
	defaultNonceTTL = 12 * time.Hour
)

// authService implements the AuthService interface.
// Tokens are stateless; there is no session store.
type authService struct {
	userStore   driven.UserStore
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
	nonceTTL    time.Duration
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userStore driven.UserStore,
	authAdapter driven.AuthAdapter,
) driving.AuthService {
	return &authService{
		userStore:   userStore,
		authAdapter: authAdapter,
		tokenTTL:    defaultTokenTTL,
		nonceTTL:    defaultNonceTTL,
		now:         time.Now,
	}
}

// Authenticate validates credentials and issues an access token
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	// Validate input
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	// Get user by email
	user, err := s.userStore.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	// Check if user is active
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}

	// Verify password
	if !s.authAdapter.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &domain.TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	token, err := s.authAdapter.GenerateToken(claims)
	if err != nil {
		return nil, err
	}

	// Update last login
	_ = s.userStore.UpdateLastLogin(ctx, user.ID)

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.ToSummary(),
	}, nil
}

// ValidateToken validates a JWT token and returns the auth context.
// The user is re-read so deactivated accounts lose access immediately.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	// Parse and validate JWT
	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, err
		}
		return nil, domain.ErrTokenInvalid
	}

	// Check expiration
	if s.now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	user, err := s.userStore.Get(ctx, claims.UserID)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

// CreateAdmin creates an active administrator account
func (s *authService) CreateAdmin(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") || len(password) < 8 {
		return nil, domain.ErrInvalidInput
	}

	if existing, err := s.userStore.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := s.authAdapter.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = email
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueNonce creates a form nonce bound to the user and action
func (s *authService) IssueNonce(ctx context.Context, userID, action string) (string, error) {
	if userID == "" || !domain.IsKnownNonceAction(action) {
		return "", domain.ErrInvalidInput
	}

	now := s.now()
	return s.authAdapter.GenerateNonce(&domain.NonceClaims{
		UserID:    userID,
		Action:    action,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.nonceTTL).Unix(),
	})
}

// VerifyNonce checks that nonce was issued to userID for action and is still valid
func (s *authService) VerifyNonce(ctx context.Context, userID, action, nonce string) error {
	if nonce == "" || userID == "" {
		return domain.ErrCSRFInvalid
	}

	claims, err := s.authAdapter.ParseNonce(nonce)
	if err != nil {
		return domain.ErrCSRFInvalid
	}
	if claims.UserID != userID || claims.Action != action {
		return domain.ErrCSRFInvalid
	}
	if s.now().Unix() > claims.ExpiresAt {
		return domain.ErrCSRFInvalid
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
