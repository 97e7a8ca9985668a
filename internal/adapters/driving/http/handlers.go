package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/appconnect/internal/core/domain"
	"github.com/custodia-labs/appconnect/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// NonceResponse carries a form nonce
// @Description Form nonce bound to the current user and an action
type NonceResponse struct {
	Action string `json:"action" example:"nonce_authorize_app"`
	Nonce  string `json:"nonce"`
}

// SuccessResponse is returned by the settings script endpoints
// @Description Settings script response
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	App     string `json:"app,omitempty" example:"ready for reauth"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the database and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", "postgres", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", "redis", "error", err)
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Auth endpoints

// handleLogin godoc
// @Summary      Administrator login
// @Description  Authenticate with email and password. The token is also set as a cookie for browser flows.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			s.logger.Error("authentication failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		MaxAge:   int(time.Until(resp.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleIssueNonce godoc
// @Summary      Issue a form nonce
// @Description  Returns a nonce for one of the settings actions, bound to the current administrator
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Param        action  query     string  true  "Nonce action"  Enums(nonce_create_app, nonce_authorize_app, gflow_delete_app, gflow_settings_js)
// @Success      200     {object}  NonceResponse
// @Failure      400     {object}  ErrorResponse  "Unknown action"
// @Router       /csrf [get]
func (s *Server) handleIssueNonce(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	action := r.URL.Query().Get("action")

	nonce, err := s.authService.IssueNonce(r.Context(), authCtx.UserID, action)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "unknown nonce action")
			return
		}
		s.logger.Error("issue nonce", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue nonce")
		return
	}

	writeJSON(w, http.StatusOK, NonceResponse{Action: action, Nonce: nonce})
}

// Connected app settings endpoint

// Submit button values of the settings forms
const (
	addAppAction       = "Next"
	authorizeAppAction = "Authorize App"
)

// handleConnectedApps godoc
// @Summary      Connected apps settings
// @Description  The OAuth1 return leg is handled whenever oauth_verifier is present.
// @Description  Otherwise POST adds an app (gflow_add_app) or starts authorization (gflow_authorize_app),
// @Description  and GET lists apps.
// @Tags         Connected Apps
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        app             query     string  false  "App ID"
// @Param        oauth_verifier  query     string  false  "Verifier returned by the remote site"
// @Param        oauth_token     query     string  false  "Temporary token returned by the remote site"
// @Success      200  {array}   domain.AppSummary
// @Success      302  "Redirect after the return leg"
// @Success      303  "Redirect after a form submission"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse  "Failed security check"
// @Router       /admin/connected-apps [get]
// @Router       /admin/connected-apps [post]
func (s *Server) handleConnectedApps(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	query := r.URL.Query()

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
	}
	addingApp := r.PostForm.Get("gflow_add_app") == addAppAction
	authorizingApp := r.PostForm.Get("gflow_authorize_app") == authorizeAppAction

	// An authorize submission is checked even when it also carries a verifier
	if authorizingApp && !s.verifyNonce(w, r, authCtx, domain.NonceActionAuthorizeApp, r.PostForm.Get("_wpnonce")) {
		return
	}

	// The return leg takes precedence over any form
	if query.Has("oauth_verifier") {
		result, err := s.appService.ProcessAuthFlow(r.Context(), driving.AuthFlowRequest{
			UserID:      authCtx.UserID,
			AppID:       query.Get("app"),
			HasVerifier: true,
			Verifier:    query.Get("oauth_verifier"),
			Token:       query.Get("oauth_token"),
			ReturnURL:   r.URL.RequestURI(),
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}

	if r.Method != http.MethodPost {
		s.handleListApps(w, r)
		return
	}

	switch {
	case addingApp:
		s.addApp(w, r, authCtx)
	case authorizingApp:
		s.authorizeApp(w, r, authCtx)
	default:
		writeError(w, http.StatusBadRequest, "unknown form action")
	}
}

func (s *Server) addApp(w http.ResponseWriter, r *http.Request, authCtx *domain.AuthContext) {
	if !s.verifyNonce(w, r, authCtx, domain.NonceActionCreateApp, r.PostForm.Get("_wpnonce")) {
		return
	}

	result, err := s.appService.AddApp(r.Context(), driving.AddAppRequest{
		UserID: authCtx.UserID,
		Name:   r.PostForm.Get("app_name"),
		APIURL: r.PostForm.Get("api_url"),
		Type:   domain.AppType(r.PostForm.Get("app_type")),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
}

// authorizeApp expects the authorize nonce to have been verified already
func (s *Server) authorizeApp(w http.ResponseWriter, r *http.Request, authCtx *domain.AuthContext) {
	result, err := s.appService.ProcessAuthFlow(r.Context(), driving.AuthFlowRequest{
		UserID:  authCtx.UserID,
		AppID:   r.URL.Query().Get("app"),
		AppType: domain.AppType(r.PostForm.Get("app_type")),
		Form: &driving.AppSettingsForm{
			Name:           r.PostForm.Get("app_name"),
			APIURL:         r.PostForm.Get("api_url"),
			ConsumerKey:    r.PostForm.Get("consumer_key"),
			ConsumerSecret: r.PostForm.Get("consumer_secret"),
		},
		ReturnURL: r.URL.RequestURI(),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
}

// Connected app API

// handleListApps godoc
// @Summary      List connected apps
// @Description  All apps with their effective status. Secrets are never returned.
// @Tags         Connected Apps
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.AppSummary
// @Router       /apps [get]
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.appService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// handleGetApp godoc
// @Summary      Get connected app
// @Description  App details with the status of each authorization step
// @Tags         Connected Apps
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "App ID"
// @Success      200  {object}  driving.AppDetail
// @Failure      404  {object}  ErrorResponse
// @Router       /apps/{id} [get]
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	detail, err := s.appService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleDeleteApp godoc
// @Summary      Delete connected app
// @Description  Removes the app and its step statuses
// @Tags         Connected Apps
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "App ID"
// @Param        _nonce  query     string  true  "Nonce for gflow_delete_app"
// @Success      200     {object}  SuccessResponse
// @Failure      400     {object}  ErrorResponse  "Malformed app ID"
// @Failure      403     {object}  ErrorResponse  "Failed security check"
// @Router       /apps/{id} [delete]
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if !s.verifyNonce(w, r, authCtx, domain.NonceActionDeleteApp, r.FormValue("_nonce")) {
		return
	}

	ok, err := s.appService.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid app id")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleReauthorizeApp godoc
// @Summary      Reauthorize connected app
// @Description  Resets the app to Not Verified and clears its step statuses. Consumer credentials are kept.
// @Tags         Connected Apps
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "App ID"
// @Param        security  formData  string  true  "Nonce for gflow_settings_js"
// @Success      200       {object}  SuccessResponse
// @Failure      403       {object}  ErrorResponse  "Failed security check"
// @Failure      404       {object}  ErrorResponse
// @Router       /apps/{id}/reauthorize [post]
func (s *Server) handleReauthorizeApp(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if !s.verifyNonce(w, r, authCtx, domain.NonceActionSettingsJS, r.FormValue("security")) {
		return
	}

	if _, err := s.appService.Reauthorize(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, App: "ready for reauth"})
}

// verifyNonce writes a 403 and returns false when the nonce does not check out
func (s *Server) verifyNonce(w http.ResponseWriter, r *http.Request, authCtx *domain.AuthContext, action, nonce string) bool {
	if err := s.authService.VerifyNonce(r.Context(), authCtx.UserID, action, nonce); err != nil {
		s.logger.Warn("nonce check failed", "action", action, "user_id", authCtx.UserID)
		writeError(w, http.StatusForbidden, domain.ErrCSRFInvalid.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors to responses. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "app not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnsupportedAppType):
		writeError(w, http.StatusBadRequest, "unsupported app type")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
