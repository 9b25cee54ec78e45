package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

// reactedBy selects the rows of a content table whose likes or dislikes
// contain the given user id.
const reactedBy = ` WHERE EXISTS (SELECT 1 FROM json_each(doc, '$.likes') WHERE value = ?1)
	OR EXISTS (SELECT 1 FROM json_each(doc, '$.dislikes') WHERE value = ?1)`

// WithdrawReactions removes userID from the reactions of every post, story
// and comment in one transaction.
func (db *DB) WithdrawReactions(ctx context.Context, userID string) error {
	return db.withTx(ctx, func(tx *DB) error {
		if err := withdrawIn(ctx, tx, "posts", userID, func(p *model.Post) *model.Reactions { return &p.Reactions }); err != nil {
			return err
		}
		if err := withdrawIn(ctx, tx, "stories", userID, func(s *model.Story) *model.Reactions { return &s.Reactions }); err != nil {
			return err
		}
		return withdrawIn(ctx, tx, "comments", userID, func(c *model.Comment) *model.Reactions { return &c.Reactions })
	})
}

// ToggleReaction reads and rewrites the item in one transaction; the single
// connection serialises concurrent toggles.
func (db *DB) ToggleReaction(ctx context.Context, kind model.ContentKind, id, userID string, reaction model.ReactionKind) (model.ReactionState, model.Reactions, error) {
	var (
		state model.ReactionState
		after model.Reactions
	)
	toggle := func(r *model.Reactions) {
		state = r.Toggle(reaction, userID)
		after = r.Normalized()
	}

	var err error
	switch kind {
	case model.KindPost:
		err = db.mutatePost(ctx, id, func(p *model.Post) { toggle(&p.Reactions) })
	case model.KindStory:
		err = db.mutateStory(ctx, id, func(s *model.Story) { toggle(&s.Reactions) })
	case model.KindComment:
		err = db.mutateComment(ctx, id, func(c *model.Comment) { toggle(&c.Reactions) })
	default:
		err = apperror.ValidationFailed("kind", fmt.Sprintf("cannot react to %q", kind))
	}
	if err != nil {
		return model.NoReaction, model.Reactions{}, err
	}
	return state, after, nil
}

func withdrawIn[T any](ctx context.Context, tx *DB, table, userID string, reactions func(*T) *model.Reactions) error {
	rows, err := tx.q.QueryContext(ctx, `SELECT id, doc FROM `+table+reactedBy, userID)
	if err != nil {
		return fmt.Errorf("sqlite: finding reactions in %s: %w", table, err)
	}

	type row struct {
		id  string
		doc *T
	}
	var pending []row
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning %s: %w", table, err)
		}
		doc, err := decodeDoc[T](raw)
		if err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, row{id: id, doc: doc})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating %s: %w", table, err)
	}
	// The single connection must be free before the updates run.
	rows.Close()

	for _, r := range pending {
		reactions(r.doc).Withdraw(userID)
		if err := tx.writeDoc(ctx, table, r.id, r.doc); err != nil {
			return err
		}
	}
	return nil
}
