package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	issueNonceFn    func(ctx context.Context, userID, action string) (string, error)
	verifyNonceFn   func(ctx context.Context, userID, action, nonce string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) CreateAdmin(ctx context.Context, email, name, password string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) IssueNonce(ctx context.Context, userID, action string) (string, error) {
	if m.issueNonceFn != nil {
		return m.issueNonceFn(ctx, userID, action)
	}
	return "", errors.New("not implemented")
}

func (m *mockAuthService) VerifyNonce(ctx context.Context, userID, action, nonce string) error {
	if m.verifyNonceFn != nil {
		return m.verifyNonceFn(ctx, userID, action, nonce)
	}
	return errors.New("not implemented")
}

type mockAppService struct {
	addAppFn      func(ctx context.Context, req driving.AddAppRequest) (*driving.FlowResult, error)
	processFn     func(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error)
	reauthorizeFn func(ctx context.Context, appID string) (*domain.App, error)
	getFn         func(ctx context.Context, appID string) (*driving.AppDetail, error)
	listFn        func(ctx context.Context) ([]*domain.AppSummary, error)
	deleteFn      func(ctx context.Context, appID string) (bool, error)

	calls int
}

func (m *mockAppService) AddApp(ctx context.Context, req driving.AddAppRequest) (*driving.FlowResult, error) {
	m.calls++
	if m.addAppFn != nil {
		return m.addAppFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) ProcessAuthFlow(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
	m.calls++
	if m.processFn != nil {
		return m.processFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Reauthorize(ctx context.Context, appID string) (*domain.App, error) {
	m.calls++
	if m.reauthorizeFn != nil {
		return m.reauthorizeFn(ctx, appID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Get(ctx context.Context, appID string) (*driving.AppDetail, error) {
	m.calls++
	if m.getFn != nil {
		return m.getFn(ctx, appID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) List(ctx context.Context) ([]*domain.AppSummary, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Delete(ctx context.Context, appID string) (bool, error) {
	m.calls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, appID)
	}
	return false, errors.New("not implemented")
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

const testAppID = "0b5f7f3e-8a55-4f5c-9a3e-2f6f1c1d9e10"

// newAdminAuth accepts "admin-token" for user-1 and nonces of the form "ok:<action>"
func newAdminAuth() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			switch token {
			case "admin-token":
				return &domain.AuthContext{UserID: "user-1", Email: "admin@example.com", Role: domain.RoleAdmin}, nil
			case "member-token":
				return &domain.AuthContext{UserID: "user-2", Role: domain.RoleMember}, nil
			}
			return nil, domain.ErrTokenInvalid
		},
		issueNonceFn: func(ctx context.Context, userID, action string) (string, error) {
			if !domain.IsKnownNonceAction(action) {
				return "", domain.ErrInvalidInput
			}
			return "ok:" + action, nil
		},
		verifyNonceFn: func(ctx context.Context, userID, action, nonce string) error {
			if userID != "user-1" || nonce != "ok:"+action {
				return domain.ErrCSRFInvalid
			}
			return nil
		},
	}
}

func newTestServer(auth driving.AuthService, apps driving.ConnectedAppService, db Pinger) http.Handler {
	cfg := DefaultConfig()
	cfg.Logger = discardLogger()
	return NewServer(cfg, auth, apps, db, nil).Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer admin-token")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response["error"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(newAdminAuth(), &mockAppService{}, &mockPinger{})

	for _, path := range []string{"/health", "/ready", "/version"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rr.Code)
		}
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	h := newTestServer(newAdminAuth(), &mockAppService{}, &mockPinger{err: errors.New("connection refused")})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Error("root cause leaked into response")
	}
}

func TestHandleSwaggerDoc(t *testing.T) {
	h := newTestServer(newAdminAuth(), &mockAppService{}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/swagger/doc.json", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/apps/{id}/reauthorize"]; !ok {
		t.Errorf("expected reauthorize path in doc, got %v", paths)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	auth := newAdminAuth()
	auth.authenticateFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
		if req.Email == "admin@example.com" && req.Password == "password123" {
			return &domain.LoginResponse{
				Token:     "admin-token",
				ExpiresAt: expiresAt,
				User:      &domain.UserSummary{ID: "user-1", Email: "admin@example.com", Role: domain.RoleAdmin},
			}, nil
		}
		return nil, domain.ErrInvalidCredentials
	}
	h := newTestServer(auth, &mockAppService{}, nil)

	body, _ := json.Marshal(domain.LoginRequest{Email: "admin@example.com", Password: "password123"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response domain.LoginResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Token != "admin-token" {
		t.Errorf("expected token 'admin-token', got %s", response.Token)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != TokenCookie {
		t.Fatalf("expected %s cookie, got %v", TokenCookie, cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie must be HttpOnly and SameSite=Lax: %+v", cookies[0])
	}
}

func TestHandleLogin_Errors(t *testing.T) {
	auth := newAdminAuth()
	auth.authenticateFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
		switch req.Email {
		case "disabled@example.com":
			return nil, domain.ErrUnauthorized
		case "broken@example.com":
			return nil, errors.New("db down")
		}
		return nil, domain.ErrInvalidCredentials
	}
	h := newTestServer(auth, &mockAppService{}, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"wrong password", `{"email":"admin@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"disabled", `{"email":"disabled@example.com","password":"x"}`, http.StatusUnauthorized},
		{"internal", `{"email":"broken@example.com","password":"x"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(tt.body)))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestHandleIssueNonce(t *testing.T) {
	h := newTestServer(newAdminAuth(), &mockAppService{}, nil)

	rr := serve(h, httptest.NewRequest("GET", "/api/v1/csrf?action=nonce_create_app", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp NonceResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Nonce != "ok:nonce_create_app" {
		t.Errorf("unexpected nonce %q", resp.Nonce)
	}

	rr = serve(h, httptest.NewRequest("GET", "/api/v1/csrf?action=bogus", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestSettingsEndpoint_RequiresAdmin(t *testing.T) {
	apps := &mockAppService{}
	h := newTestServer(newAdminAuth(), apps, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", SettingsPath+"?app=x&oauth_verifier=v", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	req := httptest.NewRequest("GET", SettingsPath, nil)
	req.Header.Set("Authorization", "Bearer member-token")
	rr = serve(h, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if apps.calls != 0 {
		t.Errorf("service must not be called, got %d calls", apps.calls)
	}
}

func TestSettingsEndpoint_ReturnLeg(t *testing.T) {
	var got driving.AuthFlowRequest
	apps := &mockAppService{
		processFn: func(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
			got = req
			return &driving.FlowResult{
				AppID:       req.AppID,
				Outcome:     driving.OutcomeVerified,
				RedirectURL: SettingsPath + "?app=" + req.AppID + "&view=connected_apps",
			}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	target := SettingsPath + "?view=connected_apps&app=" + testAppID + "&oauth_token=tok1&oauth_verifier=ver1&wp_scope=*"
	rr := serve(h, httptest.NewRequest("GET", target, nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != SettingsPath+"?app="+testAppID+"&view=connected_apps" {
		t.Errorf("unexpected redirect %q", loc)
	}
	if !got.HasVerifier || got.Verifier != "ver1" || got.Token != "tok1" {
		t.Errorf("unexpected flow request %+v", got)
	}
	if got.UserID != "user-1" || got.AppID != testAppID {
		t.Errorf("unexpected flow request %+v", got)
	}
	if got.ReturnURL != target {
		t.Errorf("expected ReturnURL %q, got %q", target, got.ReturnURL)
	}
	if got.Form != nil {
		t.Error("return leg must not carry a form")
	}
}

func TestSettingsEndpoint_VerifierTakesPrecedence(t *testing.T) {
	var got driving.AuthFlowRequest
	apps := &mockAppService{
		processFn: func(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
			got = req
			return &driving.FlowResult{Outcome: driving.OutcomeFailed, RedirectURL: SettingsPath}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	form := url.Values{
		"gflow_authorize_app": {"Authorize App"},
		"consumer_key":        {"ck2"},
		"_wpnonce":            {"ok:" + domain.NonceActionAuthorizeApp},
	}
	rr := serve(h, formRequest(SettingsPath+"?app="+testAppID+"&oauth_verifier=", form))

	if rr.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rr.Code)
	}
	if !got.HasVerifier || got.Verifier != "" || got.Form != nil {
		t.Errorf("expected return leg with empty verifier, got %+v", got)
	}
}

func TestSettingsEndpoint_AuthorizeWithVerifierChecksNonce(t *testing.T) {
	apps := &mockAppService{}
	h := newTestServer(newAdminAuth(), apps, nil)

	form := url.Values{"gflow_authorize_app": {"Authorize App"}, "_wpnonce": {"forged"}}
	rr := serve(h, formRequest(SettingsPath+"?app="+testAppID+"&oauth_verifier=ver1&oauth_token=tok1", form))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if apps.calls != 0 {
		t.Errorf("service must not be called, got %d calls", apps.calls)
	}
}

func TestSettingsEndpoint_ActionValuesMustMatch(t *testing.T) {
	apps := &mockAppService{}
	h := newTestServer(newAdminAuth(), apps, nil)

	tests := []struct {
		name string
		form url.Values
	}{
		{"add with other value", url.Values{"gflow_add_app": {"Go"}, "_wpnonce": {"ok:" + domain.NonceActionCreateApp}}},
		{"authorize with other value", url.Values{"gflow_authorize_app": {"1"}, "_wpnonce": {"ok:" + domain.NonceActionAuthorizeApp}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, formRequest(SettingsPath+"?app="+testAppID, tt.form))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
	if apps.calls != 0 {
		t.Errorf("service must not be called, got %d calls", apps.calls)
	}
}

func TestSettingsEndpoint_AddApp(t *testing.T) {
	var got driving.AddAppRequest
	apps := &mockAppService{
		addAppFn: func(ctx context.Context, req driving.AddAppRequest) (*driving.FlowResult, error) {
			got = req
			return &driving.FlowResult{
				AppID:       testAppID,
				Outcome:     driving.OutcomeAppCreated,
				RedirectURL: SettingsPath + "?app=" + testAppID,
			}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	form := url.Values{
		"gflow_add_app": {"Next"},
		"app_name":      {"Marketing blog"},
		"api_url":       {"https://blog.example.com/wp-json/"},
		"app_type":      {"wp_oauth1"},
		"_wpnonce":      {"ok:" + domain.NonceActionCreateApp},
	}
	rr := serve(h, formRequest(SettingsPath, form))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != SettingsPath+"?app="+testAppID {
		t.Errorf("unexpected redirect %q", loc)
	}
	if got.Name != "Marketing blog" || got.Type != domain.AppTypeWPOAuth1 || got.UserID != "user-1" {
		t.Errorf("unexpected add request %+v", got)
	}
}

func TestSettingsEndpoint_AddAppInvalid(t *testing.T) {
	apps := &mockAppService{
		addAppFn: func(ctx context.Context, req driving.AddAppRequest) (*driving.FlowResult, error) {
			return nil, domain.ErrInvalidInput
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	form := url.Values{"gflow_add_app": {"Next"}, "_wpnonce": {"ok:" + domain.NonceActionCreateApp}}
	rr := serve(h, formRequest(SettingsPath, form))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestSettingsEndpoint_Authorize(t *testing.T) {
	var got driving.AuthFlowRequest
	apps := &mockAppService{
		processFn: func(ctx context.Context, req driving.AuthFlowRequest) (*driving.FlowResult, error) {
			got = req
			return &driving.FlowResult{
				AppID:       req.AppID,
				Outcome:     driving.OutcomeRedirectToRemote,
				RedirectURL: "https://blog.example.com/oauth1/authorize?oauth_token=tok1",
			}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	form := url.Values{
		"gflow_authorize_app": {"Authorize App"},
		"app_name":            {"Marketing blog"},
		"api_url":             {"https://blog.example.com/wp-json/"},
		"consumer_key":        {"ck"},
		"consumer_secret":     {"cs"},
		"_wpnonce":            {"ok:" + domain.NonceActionAuthorizeApp},
	}
	rr := serve(h, formRequest(SettingsPath+"?app="+testAppID, form))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://blog.example.com/oauth1/authorize?oauth_token=tok1" {
		t.Errorf("unexpected redirect %q", loc)
	}
	if got.AppID != testAppID || got.HasVerifier {
		t.Errorf("unexpected flow request %+v", got)
	}
	if got.Form == nil || got.Form.ConsumerKey != "ck" || got.Form.ConsumerSecret != "cs" {
		t.Errorf("unexpected settings form %+v", got.Form)
	}
}

func TestSettingsEndpoint_CSRFFailureMutatesNothing(t *testing.T) {
	apps := &mockAppService{}
	h := newTestServer(newAdminAuth(), apps, nil)

	tests := []struct {
		name string
		form url.Values
	}{
		{"add without nonce", url.Values{"gflow_add_app": {"Next"}, "app_name": {"x"}}},
		{"add with wrong action", url.Values{"gflow_add_app": {"Next"}, "_wpnonce": {"ok:" + domain.NonceActionAuthorizeApp}}},
		{"authorize with bad nonce", url.Values{"gflow_authorize_app": {"Authorize App"}, "_wpnonce": {"forged"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, formRequest(SettingsPath+"?app="+testAppID, tt.form))
			if rr.Code != http.StatusForbidden {
				t.Errorf("expected status 403, got %d", rr.Code)
			}
		})
	}
	if apps.calls != 0 {
		t.Errorf("service must not be called, got %d calls", apps.calls)
	}
}

func TestSettingsEndpoint_UnknownFormAction(t *testing.T) {
	h := newTestServer(newAdminAuth(), &mockAppService{}, nil)

	rr := serve(h, formRequest(SettingsPath, url.Values{"something": {"else"}}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestSettingsEndpoint_GetLists(t *testing.T) {
	apps := &mockAppService{
		listFn: func(ctx context.Context) ([]*domain.AppSummary, error) {
			return []*domain.AppSummary{{ID: testAppID, Name: "Marketing blog", Status: domain.AppStatusVerified}}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	for _, path := range []string{SettingsPath, "/api/v1/apps"} {
		rr := serve(h, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rr.Code)
		}
		var list []domain.AppSummary
		if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(list) != 1 || list[0].Status != domain.AppStatusVerified {
			t.Errorf("%s: unexpected list %+v", path, list)
		}
	}
}

func TestHandleGetApp(t *testing.T) {
	apps := &mockAppService{
		getFn: func(ctx context.Context, appID string) (*driving.AppDetail, error) {
			if appID != testAppID {
				return nil, domain.ErrNotFound
			}
			return &driving.AppDetail{
				App:   &domain.AppSummary{ID: appID, Status: domain.AppStatusFailed},
				Steps: domain.StepDetails(map[domain.ConnectionStep]domain.StepStatus{domain.StepRequestTempCredentials: domain.StepStatusFailed}),
			}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	rr := serve(h, httptest.NewRequest("GET", "/api/v1/apps/"+testAppID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var detail driving.AppDetail
	_ = json.NewDecoder(rr.Body).Decode(&detail)
	if len(detail.Steps) != 3 || detail.Steps[0].Status != domain.StepStatusFailed {
		t.Errorf("unexpected steps %+v", detail.Steps)
	}

	rr = serve(h, httptest.NewRequest("GET", "/api/v1/apps/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleDeleteApp(t *testing.T) {
	apps := &mockAppService{
		deleteFn: func(ctx context.Context, appID string) (bool, error) {
			return appID == testAppID, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)
	nonce := url.QueryEscape("ok:" + domain.NonceActionDeleteApp)

	rr := serve(h, httptest.NewRequest("DELETE", "/api/v1/apps/"+testAppID+"?_nonce="+nonce, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp SuccessResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success {
		t.Error("expected success")
	}

	rr = serve(h, httptest.NewRequest("DELETE", "/api/v1/apps/not-a-uuid?_nonce="+nonce, nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	calls := apps.calls
	rr = serve(h, httptest.NewRequest("DELETE", "/api/v1/apps/"+testAppID, nil))
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if apps.calls != calls {
		t.Error("delete must not run without a valid nonce")
	}
}

func TestHandleReauthorizeApp(t *testing.T) {
	apps := &mockAppService{
		reauthorizeFn: func(ctx context.Context, appID string) (*domain.App, error) {
			if appID != testAppID {
				return nil, domain.ErrNotFound
			}
			return &domain.App{ID: appID, Status: domain.AppStatusNotVerified}, nil
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)
	form := url.Values{"security": {"ok:" + domain.NonceActionSettingsJS}}

	rr := serve(h, formRequest("/api/v1/apps/"+testAppID+"/reauthorize", form))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"success":true,"app":"ready for reauth"}` {
		t.Errorf("unexpected body %s", body)
	}

	rr = serve(h, formRequest("/api/v1/apps/"+testAppID+"/reauthorize", url.Values{"security": {"forged"}}))
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}

	rr = serve(h, formRequest("/api/v1/apps/missing/reauthorize", form))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestServiceErrorsHideRootCause(t *testing.T) {
	apps := &mockAppService{
		listFn: func(ctx context.Context) ([]*domain.AppSummary, error) {
			return nil, errors.New("pq: password authentication failed")
		},
	}
	h := newTestServer(newAdminAuth(), apps, nil)

	rr := serve(h, httptest.NewRequest("GET", "/api/v1/apps", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Error("root cause leaked into response")
	}
}
