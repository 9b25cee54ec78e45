package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// TokenHeader is the request header carrying the access token.
const TokenHeader = "x-auth-token"

const (
	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is invalid"
)

var ErrNoToken = errors.New("auth: no token")

// contextKey is unexported so only this package can set or read the user id.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid token with 401 and an
// {"msg": "..."} body. On success the user id is available through
// UserIDFromContext.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				msg := msgInvalidToken
				if errors.Is(err, ErrNoToken) {
					msg = msgNoToken
				}
				writeUnauthorized(w, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying an authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the token from x-auth-token, falling back to an
// "Authorization: Bearer" header, and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	if token == "" {
		if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			token = strings.TrimSpace(h[7:])
		}
	}
	if token == "" {
		return "", ErrNoToken
	}

	return tokens.Validate(token)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
