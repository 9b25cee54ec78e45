// Package config loads the server configuration from the environment.
//
// A `.env` file in the working directory is read first (godotenv). Values
// already present in the environment win over the file, so production
// deployments can ignore it entirely.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting of the server process.
type Config struct {
	Port int

	// Store selection: MongoDB when MongoURI is set, SQLite at DBPath otherwise.
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	DBPath            string
	StoreTimeout      time.Duration

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	CORSOrigins        []string
	RedisURL           string
	RateLimitPerMinute int

	KafkaBrokers string
	KafkaTopic   string

	OTLPEndpoint string
	ServiceName  string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	LogLevel  slog.Level
	LogFormat string
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config from any key lookup function.
func FromLookup(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Port:               e.int("PORT", 6000),
		MongoURI:           e.first("MONGODB_URI", "MONGO_URI"),
		MongoDatabase:      e.str("MONGODB_DATABASE", "storyline"),
		MongoTransactions:  e.bool("MONGODB_TRANSACTIONS", false),
		DBPath:             e.str("DB_PATH", "data/storyline.db"),
		StoreTimeout:       e.duration("STORE_TIMEOUT", 10*time.Second),
		JWTSecret:          e.first("JWT_SECRET", "JWT_KEY"),
		TokenTTL:           e.duration("TOKEN_TTL", time.Hour),
		BcryptCost:         e.int("BCRYPT_COST", 10),
		CORSOrigins:        e.list("CORS_ORIGINS"),
		RedisURL:           e.str("REDIS_URL", ""),
		RateLimitPerMinute: e.int("RATE_LIMIT_PER_MINUTE", 60),
		KafkaBrokers:       e.str("KAFKA_BROKERS", ""),
		KafkaTopic:         e.str("KAFKA_TOPIC", "storyline.events"),
		OTLPEndpoint:       e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:        e.str("OTEL_SERVICE_NAME", "storyline"),
		GitHubClientID:     e.str("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: e.str("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  e.str("GITHUB_CALLBACK_URL", ""),
		LogLevel:           e.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:          strings.ToLower(e.str("LOG_FORMAT", "text")),
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if len(cfg.JWTSecret) < 16 {
		e.fail("JWT_SECRET", "must be set and at least 16 characters")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		e.fail("PORT", "must be between 1 and 65535")
	}
	if cfg.RateLimitPerMinute < 1 {
		e.fail("RATE_LIMIT_PER_MINUTE", "must be positive")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		e.fail("LOG_FORMAT", "must be text or json")
	}

	if len(e.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(e.errs...))
	}
	return cfg, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// env reads typed values and collects every parse error.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) fail(key, msg string) {
	e.errs = append(e.errs, fmt.Errorf("%s %s", key, msg))
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e.get(k)); v != "" {
			return v
		}
	}
	return ""
}

func (e *env) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, fmt.Sprintf("is not an integer: %q", v))
		return def
	}
	return n
}

func (e *env) bool(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, fmt.Sprintf("is not a boolean: %q", v))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain numbers are seconds, e.g. TOKEN_TTL=3600.
		if n, nerr := strconv.Atoi(v); nerr == nil {
			return time.Duration(n) * time.Second
		}
		e.fail(key, fmt.Sprintf("is not a duration: %q", v))
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) level(key string, def slog.Level) slog.Level {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		e.fail(key, fmt.Sprintf("is not a log level: %q", v))
		return def
	}
	return l
}
