package oauth1

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.OAuth1Client = (*Client)(nil)

const (
	// DefaultTimeout bounds every call to the remote server
	DefaultTimeout = 30 * time.Second

	// DefaultClientID is sent as the User-Agent when no client identifier is configured
	DefaultClientID = "appconnect"

	maxResponseBytes = 1 << 20
)

// Endpoints are the three OAuth1 endpoints of a remote server
type Endpoints struct {
	Request   string
	Authorize string
	Access    string
}

// ResolveEndpoints derives the WP REST API OAuth1 endpoints from an API URL.
// "https://example.com/wp-json/" resolves to "https://example.com/oauth1/request" etc.
func ResolveEndpoints(apiURL string) (Endpoints, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Endpoints{}, fmt.Errorf("api url %q is not an absolute http(s) url", apiURL)
	}
	u.RawQuery = ""
	u.Fragment = ""

	// Everything from the first whole wp-json segment onwards is dropped
	var kept []string
	for _, seg := range strings.Split(path.Clean("/"+u.Path), "/") {
		if seg == "wp-json" {
			break
		}
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	u.Path = ""
	u.RawPath = ""
	if len(kept) > 0 {
		u.Path = "/" + strings.Join(kept, "/")
	}
	base := u.String()

	return Endpoints{
		Request:   base + "/oauth1/request",
		Authorize: base + "/oauth1/authorize",
		Access:    base + "/oauth1/access",
	}, nil
}

// Config holds the inputs needed to talk to one remote server.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string

	// CallbackURL is where the remote server sends the user back. It must be
	// registered with the remote application and carry the app ID.
	CallbackURL string

	// ClientID identifies this client to the remote server (User-Agent)
	ClientID string

	// APIURL is the remote API root. Endpoints are derived from it unless
	// Endpoints is set.
	APIURL    string
	Endpoints *Endpoints

	// HTTPClient is used for remote calls. A client without a timeout gets
	// DefaultTimeout.
	HTTPClient *http.Client

	// Now and Nonce are overridable for tests
	Now   func() time.Time
	Nonce func() (string, error)
}

// Client implements the OAuth1 client side of the three-legged flow
// using HMAC-SHA1 request signing.
type Client struct {
	consumerKey    string
	consumerSecret string
	callbackURL    string
	clientID       string
	endpoints      Endpoints
	httpClient     *http.Client
	now            func() time.Time
	nonce          func() (string, error)
}

// NewClient validates cfg and creates a Client.
// Missing required fields yield a configuration FlowError.
func NewClient(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.ConsumerKey) == "" {
		missing = append(missing, "consumer_key")
	}
	if strings.TrimSpace(cfg.ConsumerSecret) == "" {
		missing = append(missing, "consumer_secret")
	}
	if strings.TrimSpace(cfg.CallbackURL) == "" {
		missing = append(missing, "callback_url")
	}
	if strings.TrimSpace(cfg.APIURL) == "" && cfg.Endpoints == nil {
		missing = append(missing, "api_url")
	}
	if len(missing) > 0 {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, "new oauth1 client",
			fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}

	var endpoints Endpoints
	if cfg.Endpoints != nil {
		endpoints = *cfg.Endpoints
	} else {
		var err error
		endpoints, err = ResolveEndpoints(cfg.APIURL)
		if err != nil {
			return nil, domain.NewFlowError(domain.FlowErrorConfiguration, "new oauth1 client", err)
		}
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	} else if httpClient.Timeout <= 0 {
		c := *httpClient
		c.Timeout = DefaultTimeout
		httpClient = &c
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	nonce := cfg.Nonce
	if nonce == nil {
		nonce = GenerateNonce
	}

	return &Client{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		callbackURL:    cfg.CallbackURL,
		clientID:       clientID,
		endpoints:      endpoints,
		httpClient:     httpClient,
		now:            now,
		nonce:          nonce,
	}, nil
}

// Endpoints returns the resolved remote endpoints
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// RequestToken obtains temporary credentials from the request endpoint.
func (c *Client) RequestToken(ctx context.Context) (*driven.TokenPair, error) {
	const op = "request token"

	values, err := c.post(ctx, op, c.endpoints.Request, "", []Param{
		{Key: "oauth_callback", Value: c.callbackURL},
	})
	if err != nil {
		return nil, err
	}

	if confirmed := values.Get("oauth_callback_confirmed"); confirmed != "" && confirmed != "true" {
		return nil, domain.NewFlowError(domain.FlowErrorProtocol, op,
			fmt.Errorf("callback not confirmed: %q", confirmed))
	}

	token, secret := values.Get("oauth_token"), values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return nil, domain.NewFlowError(domain.FlowErrorProtocol, op,
			errors.New("response is missing oauth_token or oauth_token_secret"))
	}

	return &driven.TokenPair{Token: token, Secret: secret}, nil
}

// AuthorizationURL appends the temporary token and callback to the authorize endpoint.
func (c *Client) AuthorizationURL(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("authorization url: %w", domain.ErrInvalidInput)
	}

	u, err := url.Parse(c.endpoints.Authorize)
	if err != nil {
		return "", fmt.Errorf("authorization url: %w", err)
	}

	q := u.Query()
	q.Set("oauth_token", token)
	q.Set("oauth_callback", c.callbackURL)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// RequestAccessToken exchanges the verifier and temporary credentials for access credentials.
func (c *Client) RequestAccessToken(ctx context.Context, verifier, token, tokenSecret string) (*domain.AccessCredentials, error) {
	const op = "request access token"

	if verifier == "" || token == "" {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, op,
			errors.New("verifier and token are required"))
	}

	values, err := c.post(ctx, op, c.endpoints.Access, tokenSecret, []Param{
		{Key: "oauth_token", Value: token},
		{Key: "oauth_verifier", Value: verifier},
	})
	if err != nil {
		return nil, err
	}

	creds := &domain.AccessCredentials{
		Token:       values.Get("oauth_token"),
		TokenSecret: values.Get("oauth_token_secret"),
	}
	if creds.Token == "" || creds.TokenSecret == "" {
		return nil, domain.NewFlowError(domain.FlowErrorProtocol, op,
			errors.New("response is missing oauth_token or oauth_token_secret"))
	}

	for key := range values {
		if key == "oauth_token" || key == "oauth_token_secret" {
			continue
		}
		if creds.Extra == nil {
			creds.Extra = make(map[string]string)
		}
		creds.Extra[key] = values.Get(key)
	}

	return creds, nil
}

// post sends a signed POST carrying the protocol parameters in the
// Authorization header and parses the form-encoded token response.
func (c *Client) post(ctx context.Context, op, endpoint, tokenSecret string, extra []Param) (url.Values, error) {
	nonce, err := c.nonce()
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, op, fmt.Errorf("generate nonce: %w", err))
	}

	params := []Param{
		{Key: "oauth_consumer_key", Value: c.consumerKey},
		{Key: "oauth_nonce", Value: nonce},
		{Key: "oauth_signature_method", Value: SignatureMethod},
		{Key: "oauth_timestamp", Value: strconv.FormatInt(c.now().Unix(), 10)},
		{Key: "oauth_version", Value: "1.0"},
	}
	params = append(params, extra...)

	base, err := SignatureBaseString(http.MethodPost, endpoint, params)
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, op, err)
	}
	params = append(params, Param{
		Key:   "oauth_signature",
		Value: Sign(SigningKey(c.consumerSecret, tokenSecret), base),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorConfiguration, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", AuthorizationHeader(params))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/x-www-form-urlencoded, text/plain, */*")
	req.Header.Set("User-Agent", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorTransport, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorTransport, op, fmt.Errorf("read response: %w", err))
	}

	// 5xx means the server or a gateway in front of it failed, not that it refused us
	if resp.StatusCode >= 500 {
		return nil, domain.NewFlowError(domain.FlowErrorTransport, op, newRemoteError(resp.StatusCode, body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFlowError(domain.FlowErrorRemoteRejected, op, newRemoteError(resp.StatusCode, body))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, domain.NewFlowError(domain.FlowErrorProtocol, op, fmt.Errorf("decode response: %w", err))
	}
	if problem := values.Get("oauth_problem"); problem != "" {
		return nil, domain.NewFlowError(domain.FlowErrorRemoteRejected, op,
			&RemoteError{StatusCode: resp.StatusCode, Problem: problem})
	}

	return values, nil
}

// GenerateNonce returns 32 random bytes, hex encoded
func GenerateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
