package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/service"
)

// oauthStateCookie holds the CSRF state of an in-flight GitHub login.
const oauthStateCookie = "oauth_state"

// AuthHandler exposes the identity provider over HTTP.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp         → create an account with email + password, start a session
//   - HandleLogin          → check email + password, start a session
//   - HandleLogout         → clear the session cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, sign in or register, start a session
//   - HandleMe             → return {id, email} of the signed-in account
//
// github is nil when GitHub sign-in is not configured; the server then never
// routes the two GitHub endpoints here.
type AuthHandler struct {
	auths        *service.AuthService
	github       *auth.GitHubProvider
	sessionTTL   time.Duration
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	auths *service.AuthService,
	github *auth.GitHubProvider,
	sessionTTL time.Duration,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auths:        auths,
		github:       github,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// sessionResponse is the body of a successful signup or login.
type sessionResponse struct {
	User model.Identity `json:"user"`
}

// HandleSignUp creates an account.
//
// HTTP: POST /auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "first_name": "...", "last_name": "..."}
// RESPONSE: 201 {"user": {"id": "...", "email": "..."}} and the session cookie
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auths.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.secureCookie)
	writeJSON(w, http.StatusCreated, sessionResponse{User: result.Account.Identity()})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// A wrong email and a wrong password get the same 401, so the endpoint cannot
// be used to find out who has an account.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auths.SignInWithPassword(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.secureCookie)
	writeJSON(w, http.StatusOK, sessionResponse{User: result.Account.Identity()})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// WHY POST AND NOT GET?
// Logout changes state. A GET could be triggered by a prefetch or an <img> tag
// on another site.
//
// Sessions are stateless JWTs, so "logout" only removes the cookie. The token
// itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the authorization URL.
// HandleGitHubCallback only accepts a callback whose state matches the cookie.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the GitHub user
//  3. Sign in, or register on first login
//  4. Set the session cookie and redirect to the dashboard
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/login?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	// --- Step 2: Exchange code for the GitHub user ---
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Sign in or register ---
	result, err := h.auths.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", statusFor(apperror.KindOf(err)))
		return
	}

	// --- Step 4: Session cookie + redirect ---
	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.secureCookie)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleMe returns the signed-in account.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets the account ID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	user, err := h.auths.CurrentUser(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
