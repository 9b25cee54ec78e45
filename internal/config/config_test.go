package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

const testSecret = "0123456789abcdef0123"

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookup(map[string]string{"JWT_SECRET": testSecret}))
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "storyline", cfg.MongoDatabase)
	assert.Equal(t, "data/storyline.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, "storyline.events", cfg.KafkaTopic)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:6000/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
	assert.Empty(t, cfg.MongoURI)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookup(map[string]string{
		"JWT_KEY":              testSecret,
		"PORT":                 "8080",
		"MONGO_URI":            "mongodb://db:27017",
		"MONGODB_TRANSACTIONS": "true",
		"TOKEN_TTL":            "3600",
		"STORE_TIMEOUT":        "2s",
		"CORS_ORIGINS":         "http://a.test, http://b.test,",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "JSON",
		"GITHUB_CLIENT_ID":     "id",
		"GITHUB_CLIENT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.GitHubEnabled())
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad port", map[string]string{"JWT_SECRET": testSecret, "PORT": "http"}, "PORT"},
		{"port out of range", map[string]string{"JWT_SECRET": testSecret, "PORT": "70000"}, "PORT"},
		{"bad bool", map[string]string{"JWT_SECRET": testSecret, "MONGODB_TRANSACTIONS": "maybe"}, "MONGODB_TRANSACTIONS"},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "TOKEN_TTL": "soon"}, "TOKEN_TTL"},
		{"bad level", map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"JWT_SECRET": testSecret, "LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"zero rate", map[string]string{"JWT_SECRET": testSecret, "RATE_LIMIT_PER_MINUTE": "0"}, "RATE_LIMIT_PER_MINUTE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookup(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromLookup_ReportsEveryProblem(t *testing.T) {
	_, err := FromLookup(lookup(map[string]string{"PORT": "x", "LOG_FORMAT": "xml"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
