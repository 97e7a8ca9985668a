package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
	"github.com/custodia-labs/appconnect/internal/core/ports/driving"
)

// Ensure connectedAppService implements ConnectedAppService
var _ driving.ConnectedAppService = (*connectedAppService)(nil)

// DefaultSecretTTL is how long a temporary token secret waits for the return leg
const DefaultSecretTTL = time.Hour

// OAuth query parameters that must not survive the return leg redirect
var oneTimeParams = []string{"oauth_token", "oauth_verifier", "wp_scope"}

// ConnectedAppServiceConfig holds the dependencies of the connected app service.
type ConnectedAppServiceConfig struct {
	// AppStore persists app records.
	AppStore driven.AppStore

	// StatusLedger records per-step flow outcomes.
	StatusLedger driven.StatusLedger

	// SecretCache bridges the outward and return legs.
	SecretCache driven.TempSecretCache

	// ClientFactory builds OAuth1 clients per app.
	ClientFactory driven.OAuth1ClientFactory

	// SettingsURL is the absolute URL of the connected apps settings page.
	// It doubles as the OAuth1 callback URL once the app ID is appended.
	// Example: "https://admin.example.com/admin/connected-apps"
	SettingsURL string

	// SecretTTL overrides DefaultSecretTTL.
	SecretTTL time.Duration

	Logger *slog.Logger
}

// flowHandler runs the authorization flow for one app type
type flowHandler func(ctx context.Context, app *domain.App, req driving.AuthFlowRequest) (*driving.FlowResult, error)

// connectedAppService implements the ConnectedAppService interface.
type connectedAppService struct {
	appStore      driven.AppStore
	statusLedger  driven.StatusLedger
	secretCache   driven.TempSecretCache
	clientFactory driven.OAuth1ClientFactory
	settingsURL   string
	secretTTL     time.Duration
	logger        *slog.Logger
	handlers      map[domain.AppType]flowHandler
}

// NewConnectedAppService creates a new ConnectedAppService.
func NewConnectedAppService(cfg ConnectedAppServiceConfig) driving.ConnectedAppService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SecretTTL
	if ttl <= 0 {
		ttl = DefaultSecretTTL
	}

	s := &connectedAppService{
		appStore:      cfg.AppStore,
		statusLedger:  cfg.StatusLedger,
		secretCache:   cfg.SecretCache,
		clientFactory: cfg.ClientFactory,
		settingsURL:   cfg.SettingsURL,
		secretTTL:     ttl,
		logger:        logger,
	}
	s.handlers = map[domain.AppType]flowHandler{
		domain.AppTypeWPOAuth1: s.processWPOAuth1,
	}
	return s
}

// AddApp validates the add form and creates the app in Not Verified status.
func (s *connectedAppService) AddApp(ctx context.Context, req driving.AddAppRequest) (*driving.FlowResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("app name is required: %w", domain.ErrInvalidInput)
	}
	if err := domain.ValidateAPIURL(req.APIURL); err != nil {
		return nil, fmt.Errorf("api url must be an absolute http(s) url: %w", err)
	}
	if _, ok := s.handlers[req.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAppType, req.Type)
	}

	app := &domain.App{
		Name:   name,
		APIURL: strings.TrimSpace(req.APIURL),
		Type:   req.Type,
		Status: domain.AppStatusNotVerified,
	}
	if err := s.appStore.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create app: %w", err)
	}

	s.logger.Info("connected app created", "app_id", app.ID, "app_type", app.Type, "user_id", req.UserID)

	return &driving.FlowResult{
		AppID:       app.ID,
		Outcome:     driving.OutcomeAppCreated,
		RedirectURL: s.appURL(app.ID),
	}, nil
}

// ProcessAuthFlow loads the app and hands the request to the handler
// registered for its type.
func (s *connectedAppService) ProcessAuthFlow(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
	if req.AppID == "" {
		return nil, fmt.Errorf("app id is required: %w", domain.ErrInvalidInput)
	}

	app, err := s.appStore.Get(ctx, req.AppID)
	if err != nil {
		return nil, fmt.Errorf("get app: %w", err)
	}

	appType := app.Type
	if req.AppType != "" {
		appType = req.AppType
	}

	handler, ok := s.handlers[appType]
	if !ok {
		s.logger.Warn("no authorization handler for app type", "app_id", app.ID, "app_type", appType)
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAppType, appType)
	}

	app.Type = appType
	return handler(ctx, app, req)
}

// processWPOAuth1 runs the WP REST API OAuth1 flow.
// The presence of oauth_verifier selects the return leg and is checked first.
func (s *connectedAppService) processWPOAuth1(ctx context.Context, app *domain.App, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
	if req.HasVerifier {
		return s.returnLeg(ctx, app, req)
	}

	if req.Form != nil {
		runFlow, err := s.applySettings(ctx, app, req.Form)
		if err != nil {
			return nil, err
		}
		if !runFlow {
			return &driving.FlowResult{
				AppID:       app.ID,
				Outcome:     driving.OutcomeSettingsSaved,
				RedirectURL: s.appURL(app.ID),
			}, nil
		}
	}

	return s.outwardLeg(ctx, app, req.UserID)
}

// applySettings saves the settings form and reports whether the outward leg
// should run. A consumer credential change resets the app to Not Verified;
// the previous access credentials stay until a new exchange replaces them.
func (s *connectedAppService) applySettings(ctx context.Context, app *domain.App, form *driving.AppSettingsForm) (bool, error) {
	if name := strings.TrimSpace(form.Name); name != "" {
		app.Name = name
	}
	if apiURL := strings.TrimSpace(form.APIURL); apiURL != "" {
		if err := domain.ValidateAPIURL(apiURL); err != nil {
			return false, fmt.Errorf("api url must be an absolute http(s) url: %w", err)
		}
		app.APIURL = apiURL
	}

	credsChanged := false
	if key := strings.TrimSpace(form.ConsumerKey); key != "" && key != app.ConsumerKey {
		app.ConsumerKey = key
		credsChanged = true
	}
	if secret := strings.TrimSpace(form.ConsumerSecret); secret != "" && secret != app.ConsumerSecret {
		app.ConsumerSecret = secret
		credsChanged = true
	}
	if credsChanged {
		app.Status = domain.AppStatusNotVerified
	}

	if err := s.appStore.Update(ctx, app.ID, app); err != nil {
		return false, fmt.Errorf("update app: %w", err)
	}

	return credsChanged || !app.IsVerified(), nil
}

// outwardLeg obtains temporary credentials and sends the user to the remote
// authorize page. The token secret waits in the cache for the return leg.
func (s *connectedAppService) outwardLeg(ctx context.Context, app *domain.App, userID string) (*driving.FlowResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("acting user is required: %w", domain.ErrUnauthorized)
	}

	// A new attempt starts a fresh ledger
	if err := s.statusLedger.DeleteAll(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("reset status ledger: %w", err)
	}

	settings := s.appURL(app.ID)

	client, err := s.clientFactory.NewClient(app, settings)
	if err != nil {
		return s.failStep(ctx, app, domain.StepRequestTempCredentials, settings, err)
	}

	pair, err := client.RequestToken(ctx)
	if err != nil {
		return s.failStep(ctx, app, domain.StepRequestTempCredentials, settings, err)
	}

	authURL, err := client.AuthorizationURL(pair.Token)
	if err != nil {
		return s.failStep(ctx, app, domain.StepRequestTempCredentials, settings,
			domain.NewFlowError(domain.FlowErrorProtocol, "authorization url", err))
	}

	if err := s.secretCache.Put(ctx, app.ID, userID, pair.Secret, s.secretTTL); err != nil {
		return nil, fmt.Errorf("cache temporary secret: %w", err)
	}
	if err := s.statusLedger.Set(ctx, app.ID, domain.StepRequestTempCredentials, domain.StepStatusSuccess); err != nil {
		return nil, fmt.Errorf("record step: %w", err)
	}

	s.logger.Info("redirecting for user authorization", "app_id", app.ID, "user_id", userID)

	return &driving.FlowResult{
		AppID:       app.ID,
		Outcome:     driving.OutcomeRedirectToRemote,
		RedirectURL: authURL,
	}, nil
}

// returnLeg validates the callback, consumes the cached secret and exchanges
// the verifier for access credentials.
func (s *connectedAppService) returnLeg(ctx context.Context, app *domain.App, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
	redirect := s.cleanReturnURL(req.ReturnURL, app.ID)

	if req.Verifier == "" || req.Token == "" {
		return s.failStep(ctx, app, domain.StepUserAuthorize, redirect,
			domain.NewFlowError(domain.FlowErrorProtocol, "validate callback",
				errors.New("oauth_verifier and oauth_token are required")))
	}

	// Single use: a replayed or concurrent callback finds nothing
	secret, found := "", false
	if req.UserID != "" {
		var err error
		secret, found, err = s.secretCache.GetAndDelete(ctx, app.ID, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("consume temporary secret: %w", err)
		}
	}
	if !found {
		return s.failStep(ctx, app, domain.StepUserAuthorize, redirect,
			domain.NewFlowError(domain.FlowErrorExpiredSecret, "consume temporary secret",
				errors.New("no temporary secret cached for app and user")))
	}
	if err := s.statusLedger.Set(ctx, app.ID, domain.StepUserAuthorize, domain.StepStatusSuccess); err != nil {
		return nil, fmt.Errorf("record step: %w", err)
	}

	client, err := s.clientFactory.NewClient(app, s.appURL(app.ID))
	if err != nil {
		return s.failStep(ctx, app, domain.StepRequestAccessCredentials, redirect, err)
	}

	creds, err := client.RequestAccessToken(ctx, req.Verifier, req.Token, secret)
	if err != nil {
		return s.failStep(ctx, app, domain.StepRequestAccessCredentials, redirect, err)
	}

	if err := s.statusLedger.Set(ctx, app.ID, domain.StepRequestAccessCredentials, domain.StepStatusSuccess); err != nil {
		return nil, fmt.Errorf("record step: %w", err)
	}

	app.AccessCredentials = creds
	app.Status = domain.AppStatusVerified
	if err := s.appStore.Update(ctx, app.ID, app); err != nil {
		return nil, fmt.Errorf("update app: %w", err)
	}

	s.logger.Info("connected app verified", "app_id", app.ID, "user_id", req.UserID)

	return &driving.FlowResult{
		AppID:       app.ID,
		Outcome:     driving.OutcomeVerified,
		RedirectURL: redirect,
	}, nil
}

// failStep records a failed step and logs its cause. The cause is not
// returned so no credential material reaches the browser.
func (s *connectedAppService) failStep(ctx context.Context, app *domain.App, step domain.ConnectionStep, redirect string, cause error) (*driving.FlowResult, error) {
	s.logger.Warn("authorization step failed",
		"app_id", app.ID,
		"step", step,
		"kind", domain.ClassifyFlowError(cause),
		"error", cause,
	)

	if err := s.statusLedger.Set(ctx, app.ID, step, domain.StepStatusFailed); err != nil {
		return nil, fmt.Errorf("record step: %w", err)
	}

	return &driving.FlowResult{
		AppID:       app.ID,
		Outcome:     driving.OutcomeFailed,
		RedirectURL: redirect,
		FailedStep:  step,
	}, nil
}

// Reauthorize resets the app to Not Verified and clears its ledger.
func (s *connectedAppService) Reauthorize(ctx context.Context, appID string) (*domain.App, error) {
	app, err := s.appStore.Get(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("get app: %w", err)
	}

	app.Status = domain.AppStatusNotVerified
	if err := s.appStore.Update(ctx, app.ID, app); err != nil {
		return nil, fmt.Errorf("update app: %w", err)
	}
	if err := s.statusLedger.DeleteAll(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("reset status ledger: %w", err)
	}

	s.logger.Info("connected app reset for reauthorization", "app_id", app.ID)
	return app, nil
}

// Get returns the app summary and its step breakdown.
func (s *connectedAppService) Get(ctx context.Context, appID string) (*driving.AppDetail, error) {
	app, err := s.appStore.Get(ctx, appID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.statusLedger.GetAll(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("get status ledger: %w", err)
	}

	return &driving.AppDetail{
		App:   app.ToSummary(statuses),
		Steps: domain.StepDetails(statuses),
	}, nil
}

// List returns every app, oldest first.
func (s *connectedAppService) List(ctx context.Context) ([]*domain.AppSummary, error) {
	apps, err := s.appStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}

	summaries := make([]*domain.AppSummary, 0, len(apps))
	for _, app := range apps {
		statuses, err := s.statusLedger.GetAll(ctx, app.ID)
		if err != nil {
			return nil, fmt.Errorf("get status ledger: %w", err)
		}
		summaries = append(summaries, app.ToSummary(statuses))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Delete removes the app and its ledger entries.
func (s *connectedAppService) Delete(ctx context.Context, appID string) (bool, error) {
	deleted, err := s.appStore.Delete(ctx, appID)
	if err != nil {
		return false, fmt.Errorf("delete app: %w", err)
	}
	if deleted {
		s.logger.Info("connected app deleted", "app_id", appID)
	}
	return deleted, nil
}

// appURL is the settings page for one app. It is also the OAuth1 callback.
func (s *connectedAppService) appURL(appID string) string {
	u, err := url.Parse(s.settingsURL)
	if err != nil {
		return s.settingsURL
	}
	q := u.Query()
	q.Set("view", "connected_apps")
	q.Set("app", appID)
	u.RawQuery = q.Encode()
	return u.String()
}

// cleanReturnURL strips the one-time OAuth parameters from the URL the
// remote server sent the user back to. Anything unparseable or pointing at
// another host falls back to the app's settings page.
func (s *connectedAppService) cleanReturnURL(returnURL, appID string) string {
	if returnURL == "" {
		return s.appURL(appID)
	}
	u, err := url.Parse(returnURL)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return s.appURL(appID)
	}

	q := u.Query()
	for _, p := range oneTimeParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
