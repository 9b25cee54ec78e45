package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/cascade"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
	"github.com/sakif/storyline/internal/repository/sqlite"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================
//
// Services are tested against a real in-memory SQLite store rather than
// hand-written fakes: the interesting behaviour (transactions, cascades,
// reference lists) lives at the seam between the two layers.

type testEnv struct {
	db       *sqlite.DB
	events   *events.Recorder
	cascades *cascadeSpy

	auth      *AuthService
	profiles  *ProfileService
	posts     *PostService
	stories   *StoryService
	comments  *CommentService
	reactions *ReactionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return newTestEnvWithStore(t, db, db)
}

// newTestEnvWithStore wires the services to store while keeping direct access
// to the underlying database for assertions.
func newTestEnvWithStore(t *testing.T, db *sqlite.DB, store repository.Store) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars", time.Hour)
	require.NoError(t, err)

	env := &testEnv{db: db, events: &events.Recorder{}, cascades: &cascadeSpy{}}
	deps := Deps{
		Store:     store,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(4), // bcrypt.MinCost keeps tests fast
		Events:    env.events,
		Cascades:  env.cascades,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}

	env.auth = NewAuthService(deps)
	env.profiles = NewProfileService(deps)
	env.posts = NewPostService(deps)
	env.stories = NewStoryService(deps)
	env.comments = NewCommentService(deps)
	env.reactions = NewReactionService(deps)
	return env
}

// register creates an account through AuthService and returns it.
func (e *testEnv) register(t *testing.T, name, email string) *model.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret123"})
	require.NoError(t, err)
	return res.User
}

func (e *testEnv) imagePost(t *testing.T, userID, title string) *model.PostView {
	t.Helper()
	post, err := e.posts.Create(context.Background(), userID, "images", PostInput{Title: title, URL: "https://img.example/" + title + ".png"})
	require.NoError(t, err)
	return post
}

func (e *testEnv) story(t *testing.T, userID, title string) *model.StoryView {
	t.Helper()
	story, err := e.stories.Create(context.Background(), userID, StoryInput{Title: title, Text: "once upon a time"})
	require.NoError(t, err)
	return story
}

// cascadeSpy records the cascades reported to the observer.
type cascadeSpy struct {
	mu   sync.Mutex
	errs []*cascade.Error
}

func (s *cascadeSpy) ObserveCascade(err *cascade.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *cascadeSpy) observed() []*cascade.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*cascade.Error(nil), s.errs...)
}

// =========================================================================
// FAULT INJECTION
// =========================================================================

var errInjected = errors.New("injected failure")

// faultyStore wraps a Store and fails the named methods. The wrapping carries
// over into transactions so cascade steps see the failures too.
type faultyStore struct {
	repository.Store
	fail map[string]bool
}

func (f *faultyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return f.Store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, &faultyStore{Store: tx, fail: f.fail})
	})
}

func (f *faultyStore) DeleteCommentsByParent(ctx context.Context, parent model.ParentRef) error {
	if f.fail["DeleteCommentsByParent"] {
		return errInjected
	}
	return f.Store.DeleteCommentsByParent(ctx, parent)
}

func (f *faultyStore) DeleteStoriesByUser(ctx context.Context, userID string) error {
	if f.fail["DeleteStoriesByUser"] {
		return errInjected
	}
	return f.Store.DeleteStoriesByUser(ctx, userID)
}

func (f *faultyStore) WithdrawReactions(ctx context.Context, userID string) error {
	if f.fail["WithdrawReactions"] {
		return errInjected
	}
	return f.Store.WithdrawReactions(ctx, userID)
}

func (f *faultyStore) PullPostComment(ctx context.Context, postID, commentID string) error {
	if f.fail["PullPostComment"] {
		return errInjected
	}
	return f.Store.PullPostComment(ctx, postID, commentID)
}

// newFaultyEnv returns an environment whose services see a store failing the
// given methods.
func newFaultyEnv(t *testing.T, methods ...string) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fail := make(map[string]bool, len(methods))
	for _, m := range methods {
		fail[m] = true
	}
	return newTestEnvWithStore(t, db, &faultyStore{Store: db, fail: fail})
}
