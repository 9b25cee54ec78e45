package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/service"
)

const stateCookie = "oauth_state"

// GitHubOAuth is the part of auth.GitHubProvider the handler needs.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

var _ GitHubOAuth = (*auth.GitHubProvider)(nil)

// AuthHandler serves login, the current-user lookup and, when configured,
// the GitHub sign-in flow.
//
// HTTP:
//
//	POST /api/auth              → email + password login, {user, token}
//	GET  /api/auth              → the caller, {user}
//	GET  /auth/github/login     → redirect to GitHub
//	GET  /auth/github/callback  → exchange the code, {user, token}
type AuthHandler struct {
	accounts *service.AuthService
	github   GitHubOAuth // nil when GitHub sign-in is not configured
	logger   *slog.Logger
}

func NewAuthHandler(accounts *service.AuthService, github GitHubOAuth, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, github: github, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: res.User.Public(), Token: res.Token})
}

// HandleCurrentUser answers 404 when the token outlived its account.
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user.Public()})
}

// HandleGitHubLogin redirects the browser to GitHub. The random state is
// kept in a short-lived HttpOnly cookie and checked on callback (CSRF).
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback validates the state, exchanges the code and signs the
// GitHub identity in, creating or linking the account as needed.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeMessage(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := q.Get("error"); denied != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", denied))
		writeMessage(w, http.StatusUnauthorized, "GitHub authorization denied")
		return
	}

	code := q.Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "Missing OAuth code")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadGateway, "GitHub authentication failed")
		return
	}

	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user authenticated via GitHub", slog.String("userID", res.User.ID))
	writeJSON(w, http.StatusOK, AuthResponse{User: res.User.Public(), Token: res.Token})
}
