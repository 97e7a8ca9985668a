package driven

import (
	"context"

	"github.com/custodia-labs/appconnect/internal/core/domain"
)

// TokenPair is a temporary credential set returned by the request-token leg
type TokenPair struct {
	Token  string
	Secret string
}

// OAuth1Client performs the OAuth1 protocol operations against one remote API.
// Errors are classified with domain.FlowError kinds.
type OAuth1Client interface {
	// RequestToken obtains temporary credentials
	RequestToken(ctx context.Context) (*TokenPair, error)

	// AuthorizationURL builds the URL the user is sent to for approval. No I/O.
	AuthorizationURL(token string) (string, error)

	// RequestAccessToken exchanges the verifier and temporary credentials
	// for access credentials
	RequestAccessToken(ctx context.Context, verifier, token, tokenSecret string) (*domain.AccessCredentials, error)
}

// OAuth1ClientFactory builds an OAuth1Client for an app.
// Returns an error wrapping domain.ErrConfiguration when the app lacks
// consumer credentials or a usable API URL.
type OAuth1ClientFactory interface {
	NewClient(app *domain.App, callbackURL string) (OAuth1Client, error)
}
