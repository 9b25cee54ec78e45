package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/storyline/internal/ratelimit"
)

const msgTooManyRequests = "Too many requests, please try again later"

// RateLimit rejects clients that exceeded limiter with 429. Clients are keyed
// by IP, so chi's RealIP must run first when behind a proxy. A limiter error
// lets the request through.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("client", key),
					slog.String("error", err.Error()),
				)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"msg": msgTooManyRequests})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP leaves a bare IP there.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
