package driving

import (
	"context"

	"github.com/custodia-labs/appconnect/internal/core/domain"
)

// ConnectedAppService drives the connected app lifecycle and the
// OAuth1 authorization flow.
type ConnectedAppService interface {
	// AddApp creates a new app in Not Verified status and returns the
	// redirect to its settings page.
	AddApp(ctx context.Context, req AddAppRequest) (*FlowResult, error)

	// ProcessAuthFlow runs the outward leg or the return leg for an app.
	// Failures of the remote exchange are recorded in the status ledger and
	// reported through the result, never as an error.
	ProcessAuthFlow(ctx context.Context, req AuthFlowRequest) (*FlowResult, error)

	// Reauthorize resets the app to Not Verified so a fresh flow can run.
	// Consumer credentials are kept.
	Reauthorize(ctx context.Context, appID string) (*domain.App, error)

	// Get returns an app with its per-step status details
	Get(ctx context.Context, appID string) (*AppDetail, error)

	// List returns all apps with their effective status
	List(ctx context.Context) ([]*domain.AppSummary, error)

	// Delete removes an app and its status entries.
	// Returns false for empty or malformed IDs.
	Delete(ctx context.Context, appID string) (bool, error)
}

// AddAppRequest carries the "add app" form.
// @Description Add connected app form
type AddAppRequest struct {
	UserID string         `json:"-"`
	Name   string         `json:"app_name" example:"Marketing blog"`
	APIURL string         `json:"api_url" example:"https://blog.example.com/wp-json/"`
	Type   domain.AppType `json:"app_type" example:"wp_oauth1"`
}

// AppSettingsForm is the settings form submitted with "Authorize App"
type AppSettingsForm struct {
	Name           string
	APIURL         string
	ConsumerKey    string
	ConsumerSecret string
}

// AuthFlowRequest describes one inbound interaction with the flow.
type AuthFlowRequest struct {
	// UserID identifies the acting administrator. The temporary secret is
	// scoped to it.
	UserID string

	// AppID comes from the "app" query parameter
	AppID string

	// AppType overrides the stored app type when the form supplies one
	AppType domain.AppType

	// Form is set when the settings form was submitted
	Form *AppSettingsForm

	// HasVerifier reports whether oauth_verifier was present in the request,
	// even if empty. It selects the return leg.
	HasVerifier bool
	Verifier    string
	Token       string

	// ReturnURL is the URL of the current request. The return leg redirects
	// to it with the one-time OAuth parameters removed.
	ReturnURL string
}

// FlowOutcome summarises what a flow request did
type FlowOutcome string

const (
	OutcomeAppCreated       FlowOutcome = "app_created"
	OutcomeSettingsSaved    FlowOutcome = "settings_saved"
	OutcomeRedirectToRemote FlowOutcome = "redirect_to_remote"
	OutcomeVerified         FlowOutcome = "verified"
	OutcomeFailed           FlowOutcome = "failed"
)

// FlowResult tells the caller where to send the browser
type FlowResult struct {
	AppID       string                `json:"app_id"`
	Outcome     FlowOutcome           `json:"outcome"`
	RedirectURL string                `json:"redirect_url"`
	FailedStep  domain.ConnectionStep `json:"failed_step,omitempty"`
}

// AppDetail is an app with its connection status breakdown.
// @Description Connected app with per-step status
type AppDetail struct {
	App   *domain.AppSummary  `json:"app"`
	Steps []domain.StepDetail `json:"steps"`
}
