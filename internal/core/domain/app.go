package domain

import (
	"net/url"
	"strings"
	"time"
)

// AppType selects the protocol handler that runs an app's authorization flow
type AppType string

const (
	// AppTypeWPOAuth1 is a WordPress site running the WP REST API OAuth1 server
	AppTypeWPOAuth1 AppType = "wp_oauth1"
)

// DisplayName returns a human-readable name for the app type
func (t AppType) DisplayName() string {
	switch t {
	case AppTypeWPOAuth1:
		return "WordPress OAuth1"
	default:
		return string(t)
	}
}

// AppStatus is the verification state of a connected app
type AppStatus string

const (
	AppStatusNotVerified AppStatus = "Not Verified"
	AppStatusVerified    AppStatus = "Verified"
	AppStatusFailed      AppStatus = "Failed"
)

// IsValid reports whether the status is one of the known values
func (s AppStatus) IsValid() bool {
	switch s {
	case AppStatusNotVerified, AppStatusVerified, AppStatusFailed:
		return true
	}
	return false
}

// AccessCredentials is the token set returned by the remote server
// at the end of a successful authorization flow.
type AccessCredentials struct {
	Token       string            `json:"oauth_token"`
	TokenSecret string            `json:"oauth_token_secret"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// App is a connected app configuration record.
// ID is generated at creation and never changes.
type App struct {
	ID                string             `json:"app_id"`
	Name              string             `json:"app_name"`
	APIURL            string             `json:"api_url"`
	Type              AppType            `json:"app_type"`
	ConsumerKey       string             `json:"consumer_key,omitempty"`
	ConsumerSecret    string             `json:"consumer_secret,omitempty"`
	AccessCredentials *AccessCredentials `json:"access_creds,omitempty"`
	Status            AppStatus          `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// HasConsumerCredentials reports whether the consumer key and secret are set.
// The flow cannot start without them.
func (a *App) HasConsumerCredentials() bool {
	return a.ConsumerKey != "" && a.ConsumerSecret != ""
}

// IsVerified reports whether the app completed the authorization flow
func (a *App) IsVerified() bool {
	return a.Status == AppStatusVerified
}

// EffectiveStatus derives the status shown to administrators.
// A stored Not Verified status is reported as Failed when the most
// advanced attempted step of the last flow failed.
func (a *App) EffectiveStatus(statuses map[ConnectionStep]StepStatus) AppStatus {
	if a.Status != AppStatusNotVerified {
		return a.Status
	}
	if last, ok := LastAttemptedStep(statuses); ok && statuses[last] == StepStatusFailed {
		return AppStatusFailed
	}
	return a.Status
}

// Clone returns a deep copy of the app
func (a *App) Clone() *App {
	if a == nil {
		return nil
	}
	c := *a
	if a.AccessCredentials != nil {
		creds := *a.AccessCredentials
		if a.AccessCredentials.Extra != nil {
			creds.Extra = make(map[string]string, len(a.AccessCredentials.Extra))
			for k, v := range a.AccessCredentials.Extra {
				creds.Extra[k] = v
			}
		}
		c.AccessCredentials = &creds
	}
	return &c
}

// AppSummary is the listing view of an app. Secrets are never included.
type AppSummary struct {
	ID             string    `json:"app_id"`
	Name           string    `json:"app_name"`
	APIURL         string    `json:"api_url"`
	Type           AppType   `json:"app_type"`
	TypeName       string    `json:"app_type_name"`
	ConsumerKey    string    `json:"consumer_key,omitempty"`
	HasSecret      bool      `json:"has_consumer_secret"`
	HasAccessCreds bool      `json:"has_access_credentials"`
	Status         AppStatus `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToSummary converts an App to an AppSummary using the given ledger entries
// to derive the reported status.
func (a *App) ToSummary(statuses map[ConnectionStep]StepStatus) *AppSummary {
	return &AppSummary{
		ID:             a.ID,
		Name:           a.Name,
		APIURL:         a.APIURL,
		Type:           a.Type,
		TypeName:       a.Type.DisplayName(),
		ConsumerKey:    a.ConsumerKey,
		HasSecret:      a.ConsumerSecret != "",
		HasAccessCreds: a.AccessCredentials != nil,
		Status:         a.EffectiveStatus(statuses),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ValidateAPIURL checks that raw is an absolute http(s) URL with a host
func ValidateAPIURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidInput
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidInput
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidInput
	}
	return nil
}
