// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// main.go builds the long-lived dependencies (store, publisher, limiter,
// metrics, tracer) and hands them over in Deps. New turns them into services
// and handlers; nothing below this package knows about the others' concrete
// types.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/handler"
	"github.com/sakif/storyline/internal/middleware"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/ratelimit"
	"github.com/sakif/storyline/internal/repository"
	"github.com/sakif/storyline/internal/service"
)

// Config holds the HTTP-level settings.
type Config struct {
	Port           int
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Deps are the collaborators owned by the process. Server closes Store and
// Events on shutdown and runs OnShutdown last.
type Deps struct {
	Store     repository.Store
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Events    events.Publisher
	Limiter   ratelimit.Limiter
	Metrics   *middleware.Metrics
	GitHub    handler.GitHubOAuth // nil disables the GitHub routes
	// OnShutdown runs after the HTTP server and the store are closed
	// (tracer flush).
	OnShutdown func(context.Context) error
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New builds the services and the router.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("server: token service is required")
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = middleware.NewMetrics()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /healthz, /metrics
//	GET  /auth/github/login, /auth/github/callback   (when configured)
//	/api/users      POST register (rate limited), PUT update (auth)
//	/api/auth       POST login (rate limited), GET current user (auth)
//	/api/profiles   see handler.ProfileHandler
//	/api/posts      see handler.PostHandler
//	/api/stories    CRUD, mutations need auth
//	/api/comments   see handler.CommentHandler
//	PUT /api/{posts,stories,comments}/{like,dislike}/{id}
//
// Middleware order: request id, real ip, metrics, logging, panic recovery,
// CORS, request timeout.
func (s *Server) setupRoutes() {
	d := service.Deps{
		Store:     s.deps.Store,
		Tokens:    s.deps.Tokens,
		Passwords: s.deps.Passwords,
		Events:    s.deps.Events,
		Cascades:  s.deps.Metrics,
		Logger:    s.logger,
	}
	accounts := service.NewAuthService(d)

	users := handler.NewUserHandler(accounts, s.logger)
	login := handler.NewAuthHandler(accounts, s.deps.GitHub, s.logger)
	profiles := handler.NewProfileHandler(service.NewProfileService(d), s.logger)
	posts := handler.NewPostHandler(service.NewPostService(d), s.logger)
	stories := handler.NewStoryHandler(service.NewStoryService(d), s.logger)
	comments := handler.NewCommentHandler(service.NewCommentService(d), s.logger)
	reactions := handler.NewReactionHandler(service.NewReactionService(d), s.logger)
	health := handler.NewHealthHandler(s.deps.Store, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.deps.Metrics.Middleware)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", auth.TokenHeader},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Timeout(s.config.RequestTimeout))

	r.Get("/healthz", health.HandleHealth)
	r.Handle("/metrics", s.deps.Metrics.Handler())

	if s.deps.GitHub != nil {
		r.Get("/auth/github/login", login.HandleGitHubLogin)
		r.Get("/auth/github/callback", login.HandleGitHubCallback)
	}

	requireAuth := auth.RequireAuth(s.deps.Tokens)

	var limit func(http.Handler) http.Handler = func(next http.Handler) http.Handler { return next }
	if s.deps.Limiter != nil {
		limit = middleware.RateLimit(s.deps.Limiter, s.logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limit).Post("/", users.HandleRegister)
			r.With(requireAuth).Put("/", users.HandleUpdate)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(limit).Post("/", login.HandleLogin)
			r.With(requireAuth).Get("/", login.HandleCurrentUser)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", profiles.HandleList)
			r.Get("/users/{userID}", profiles.HandleByUser)
			r.Get("/{profileID}", profiles.HandleByID)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", profiles.HandleUpsert)
				r.Put("/", profiles.HandleUpsert)
				r.Get("/me", profiles.HandleMe)
				r.Delete("/", profiles.HandleDelete)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", posts.HandleList)
			// The category pattern is tried before {id}.
			r.Get("/{category:(videos|audios|images|stories)}", posts.HandleList)
			r.Get("/{id}", posts.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{category}", posts.HandleCreate)
				r.Put("/{id}", posts.HandleUpdate)
				r.Delete("/{id}", posts.HandleDelete)
			})
		})

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", stories.HandleList)
			r.Get("/{id}", stories.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", stories.HandleCreate)
				r.Put("/{id}", stories.HandleUpdate)
				r.Delete("/{id}", stories.HandleDelete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/posts/{parentID}", comments.HandleList(model.KindPost))
			r.Get("/stories/{parentID}", comments.HandleList(model.KindStory))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/posts/{parentID}", comments.HandleCreate(model.KindPost))
				r.Post("/stories/{parentID}", comments.HandleCreate(model.KindStory))
				r.Put("/{commentID}", comments.HandleUpdate)
				r.Delete("/{commentID}", comments.HandleDelete)
			})
		})

		// Reaction routes have two segments below the collection, so they
		// never collide with /{id}.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			for _, kind := range []model.ContentKind{model.KindPost, model.KindStory, model.KindComment} {
				for _, reaction := range []model.ReactionKind{model.Like, model.Dislike} {
					path := fmt.Sprintf("/%s/%s/{id}", collection(kind), reaction)
					r.Put(path, reactions.HandleToggle(kind, reaction))
				}
			}
		})
	})
}

// collection maps a content kind to its URL segment.
func collection(kind model.ContentKind) string {
	switch kind {
	case model.KindStory:
		return "stories"
	case model.KindComment:
		return "comments"
	default:
		return "posts"
	}
}

func (s *Server) allowedOrigins() []string {
	if len(s.config.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.CORSOrigins
}

// Start runs the server until SIGINT or SIGTERM, then shuts down gracefully:
// in-flight requests get 30 seconds, then the store, the event publisher and
// OnShutdown are closed in that order.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      otelhttp.NewHandler(s.router, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	if err := s.deps.Store.Close(); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}
	if err := s.deps.Events.Close(); err != nil {
		s.logger.Error("closing event publisher", slog.String("error", err.Error()))
	}
	if s.deps.OnShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.OnShutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown", slog.String("error", err.Error()))
		}
	}
}
