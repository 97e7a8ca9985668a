package oauth1

import (
	"net/http"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure ClientFactory implements the interface.
var _ driven.OAuth1ClientFactory = (*ClientFactory)(nil)

// ClientFactory builds a Client per app, sharing one HTTP client.
type ClientFactory struct {
	httpClient     *http.Client
	clientIDPrefix string
}

// NewClientFactory creates a factory whose clients time out after timeout.
// A non-positive timeout uses DefaultTimeout.
func NewClientFactory(timeout time.Duration, clientIDPrefix string) *ClientFactory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ClientFactory{
		httpClient:     &http.Client{Timeout: timeout},
		clientIDPrefix: clientIDPrefix,
	}
}

// NewClientFactoryWithHTTPClient creates a factory using the given HTTP client
func NewClientFactoryWithHTTPClient(httpClient *http.Client, clientIDPrefix string) *ClientFactory {
	return &ClientFactory{
		httpClient:     httpClient,
		clientIDPrefix: clientIDPrefix,
	}
}

// NewClient configures a client from the app's consumer credentials and API URL.
func (f *ClientFactory) NewClient(app *domain.App, callbackURL string) (driven.OAuth1Client, error) {
	if app == nil {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, "new oauth1 client", domain.ErrNotFound)
	}

	clientID := ""
	if f.clientIDPrefix != "" {
		clientID = f.clientIDPrefix + app.ConsumerKey
	}

	client, err := NewClient(Config{
		ConsumerKey:    app.ConsumerKey,
		ConsumerSecret: app.ConsumerSecret,
		CallbackURL:    callbackURL,
		ClientID:       clientID,
		APIURL:         app.APIURL,
		HTTPClient:     f.httpClient,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
