package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure the OAuth1 mocks implement their interfaces
var (
	_ driven.OAuth1Client        = (*MockOAuth1Client)(nil)
	_ driven.OAuth1ClientFactory = (*MockOAuth1ClientFactory)(nil)
)

// MockOAuth1Client is a testify mock of OAuth1Client
type MockOAuth1Client struct {
	mock.Mock
}

func (m *MockOAuth1Client) RequestToken(ctx context.Context) (*driven.TokenPair, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driven.TokenPair), args.Error(1)
}

func (m *MockOAuth1Client) AuthorizationURL(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func (m *MockOAuth1Client) RequestAccessToken(ctx context.Context, verifier, token, tokenSecret string) (*domain.AccessCredentials, error) {
	args := m.Called(ctx, verifier, token, tokenSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessCredentials), args.Error(1)
}

// MockOAuth1ClientFactory is a testify mock of OAuth1ClientFactory
type MockOAuth1ClientFactory struct {
	mock.Mock
}

func (m *MockOAuth1ClientFactory) NewClient(app *domain.App, callbackURL string) (driven.OAuth1Client, error) {
	args := m.Called(app, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driven.OAuth1Client), args.Error(1)
}
