package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/handler"
	"github.com/sakif/storyline/internal/repository/sqlite"
	"github.com/sakif/storyline/internal/service"
)

// fakeGitHub stands in for the OAuth provider.
type fakeGitHub struct {
	user     *auth.GitHubUser
	err      error
	gotCode  string
	gotState string
}

func (f *fakeGitHub) AuthURL(state string) string {
	f.gotState = state
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.gotCode = code
	return f.user, f.err
}

func newAuthHandler(t *testing.T, gh handler.GitHubOAuth) *handler.AuthHandler {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := service.NewAuthService(service.Deps{
		Store:     db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(4),
		Logger:    logger,
	})
	return handler.NewAuthHandler(accounts, gh, logger)
}

func callback(query string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestAuthHandler_GitHubLogin(t *testing.T) {
	gh := &fakeGitHub{}
	h := newAuthHandler(t, gh)

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
	assert.Equal(t, cookies[0].Value, gh.gotState)
	assert.Contains(t, rr.Header().Get("Location"), "state="+gh.gotState)
}

func TestAuthHandler_GitHubCallback(t *testing.T) {
	state := &http.Cookie{Name: "oauth_state", Value: "state-123"}

	t.Run("signs in and provisions the account", func(t *testing.T) {
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 42, Login: "octo", Name: "Octo Cat", Email: "octo@example.com"}}
		h := newAuthHandler(t, gh)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, callback("state=state-123&code=abc", state))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "abc", gh.gotCode)

		var res handler.AuthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "Octo Cat", res.User.Name)
		assert.Equal(t, "octo@example.com", res.User.Email)

		// The state cookie is cleared.
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	tests := []struct {
		name     string
		query    string
		cookie   *http.Cookie
		exchange error
		wantCode int
	}{
		{name: "missing cookie", query: "state=state-123&code=abc", wantCode: http.StatusBadRequest},
		{name: "state mismatch", query: "state=other&code=abc", cookie: state, wantCode: http.StatusBadRequest},
		{name: "user denied", query: "state=state-123&error=access_denied", cookie: state, wantCode: http.StatusUnauthorized},
		{name: "missing code", query: "state=state-123", cookie: state, wantCode: http.StatusBadRequest},
		{name: "exchange fails", query: "state=state-123&code=abc", cookie: state, exchange: errors.New("boom"), wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthHandler(t, &fakeGitHub{err: tt.exchange})

			rr := httptest.NewRecorder()
			h.HandleGitHubCallback(rr, callback(tt.query, tt.cookie))

			assert.Equal(t, tt.wantCode, rr.Code)

			var body handler.MessageResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.NotEmpty(t, body.Msg)
		})
	}
}
