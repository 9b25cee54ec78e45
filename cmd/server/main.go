// Package main is the entry point of the storyline API server.
//
// main reads the configuration, builds the long-lived dependencies and hands
// them to internal/server:
//
//	config → logger → tracing → store → events → rate limiter → server
//
// Every optional backend falls back to an in-process one: SQLite when
// MONGODB_URI is unset, no events without KAFKA_BROKERS, an in-memory rate
// limiter without REDIS_URL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/config"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/middleware"
	"github.com/sakif/storyline/internal/ratelimit"
	"github.com/sakif/storyline/internal/repository"
	"github.com/sakif/storyline/internal/repository/mongodb"
	"github.com/sakif/storyline/internal/repository/sqlite"
	"github.com/sakif/storyline/internal/server"
	"github.com/sakif/storyline/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return err
	}

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		store.Close()
		_ = shutdownTracing(ctx)
		return err
	}

	limiter, err := openLimiter(cfg, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		_ = shutdownTracing(ctx)
		return err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		store.Close()
		publisher.Close()
		_ = shutdownTracing(ctx)
		return err
	}

	deps := server.Deps{
		Store:      store,
		Tokens:     tokens,
		Passwords:  auth.NewPasswordService(cfg.BcryptCost),
		Events:     publisher,
		Limiter:    limiter,
		Metrics:    middleware.NewMetrics(),
		OnShutdown: shutdownTracing,
	}
	if cfg.GitHubEnabled() {
		deps.GitHub = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	} else {
		logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set)")
	}

	srv, err := server.New(server.Config{
		Port:           cfg.Port,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.StoreTimeout,
	}, deps, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		_ = shutdownTracing(ctx)
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the dependencies.
	return srv.Start()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.MongoURI != "" {
		store, err := mongodb.Connect(ctx, mongodb.Options{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("store: mongodb",
			slog.String("database", cfg.MongoDatabase),
			slog.Bool("transactions", cfg.MongoTransactions),
		)
		return store, nil
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Info("store: sqlite", slog.String("path", cfg.DBPath))
	return db, nil
}

func openPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.KafkaBrokers == "" {
		logger.Info("events disabled (KAFKA_BROKERS not set)")
		return events.Nop{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	logger.Info("events: kafka", slog.String("topic", cfg.KafkaTopic))
	return p, nil
}

func openLimiter(cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.RedisURL == "" {
		m := ratelimit.NewMemory(cfg.RateLimitPerMinute, time.Minute)
		go sweep(m)
		return m, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	logger.Info("rate limiter: redis", slog.String("addr", opts.Addr))
	return ratelimit.NewRedis(redis.NewClient(opts), cfg.RateLimitPerMinute, time.Minute), nil
}

// sweep drops expired in-memory windows so idle clients do not accumulate.
func sweep(m *ratelimit.Memory) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for range t.C {
		m.Sweep()
	}
}
