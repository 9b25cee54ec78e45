// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces ownership, orchestrates
//	Repository (data layer)  → reads/writes documents
//
// Services accept plain Go values, never *http.Request, and return typed
// errors from internal/apperror. The handler layer turns those into status
// codes.
//
// TRANSACTIONS AND CASCADES:
// Operations that touch several documents (register, create content, every
// delete) run inside Store.RunInTx. Inside the callback only the tx Store may
// be used. Deletions are expressed as cascade.Plans so that a partial failure
// names the steps that failed.
//
// EVENTS:
// Domain events are published after the transaction committed. A publish
// failure is logged and otherwise ignored.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/cascade"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
	"github.com/sakif/storyline/internal/sanitize"
)

// Messages shared by several services. They are returned to clients verbatim.
const (
	msgNotAuthorized = "User not authorized"
	msgTitleRequired = "Title is required"
	msgTextRequired  = "Text is required"
)

// publishTimeout bounds one event publish so a slow broker cannot hold a
// request open.
const publishTimeout = 3 * time.Second

// CascadeObserver is told about every cascade that did not complete.
type CascadeObserver interface {
	ObserveCascade(err *cascade.Error)
}

// Deps holds the dependencies shared by all services. Store and Logger are
// required; the rest fall back to working defaults.
type Deps struct {
	Store     repository.Store
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Sanitizer *sanitize.Sanitizer
	Events    events.Publisher
	Cascades  CascadeObserver
	Logger    *slog.Logger
}

// base carries Deps and the helpers every service uses.
type base struct {
	store    repository.Store
	clean    *sanitize.Sanitizer
	events   events.Publisher
	cascades CascadeObserver
	logger   *slog.Logger
}

func newBase(d Deps) base {
	b := base{
		store:    d.Store,
		clean:    d.Sanitizer,
		events:   d.Events,
		cascades: d.Cascades,
		logger:   d.Logger,
	}
	if b.clean == nil {
		b.clean = sanitize.New()
	}
	if b.events == nil {
		b.events = events.Nop{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// publish sends ev and logs a failure. It never fails the caller.
func (b *base) publish(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := b.events.Publish(ctx, ev); err != nil {
		b.logger.Warn("event publish failed",
			slog.String("type", string(ev.Type)),
			slog.String("subject", ev.SubjectID),
			slog.String("error", err.Error()),
		)
	}
}

// runCascade runs the plan built by build inside one store transaction.
func (b *base) runCascade(ctx context.Context, build func(tx repository.Store) cascade.Plan) error {
	err := b.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return build(tx).Run(ctx, b.logger)
	})
	if cerr, ok := cascade.AsError(err); ok && b.cascades != nil {
		b.cascades.ObserveCascade(cerr)
	}
	return err
}

// authors resolves owner ids. Owners that no longer exist get an Author
// carrying only the id.
func (b *base) authors(ctx context.Context, ids []string) (map[string]model.Author, error) {
	found, err := b.store.ListAuthors(ctx, unique(ids))
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			found[id] = model.Author{ID: id}
		}
	}
	return found, nil
}

func (b *base) author(ctx context.Context, id string) (model.Author, error) {
	m, err := b.authors(ctx, []string{id})
	if err != nil {
		return model.Author{}, err
	}
	return m[id], nil
}

// requireUser loads the acting user; a token for a deleted account is a 404.
func (b *base) requireUser(ctx context.Context, userID string) (*model.User, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return b.store.GetUserByID(ctx, userID)
}

// ensureProfile creates an empty profile for userID if none exists.
func ensureProfile(ctx context.Context, tx repository.Store, userID string) error {
	_, err := tx.GetProfileByUser(ctx, userID)
	if apperror.IsNotFound(err) {
		return tx.CreateProfile(ctx, model.NewProfile(userID))
	}
	return err
}

// checkID rejects ids that are not xids before they reach the store.
func checkID(field, id string) error {
	if _, err := xid.FromString(id); err != nil {
		return apperror.BadReference(field, id)
	}
	return nil
}

// validURL accepts absolute http and https URLs.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
