package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/model"
)

func (db *DB) CreateStory(ctx context.Context, story *model.Story) error {
	story.ID = xid.New().String()
	story.Date = now()
	normalizeStory(story)

	doc, err := encodeDoc(story)
	if err != nil {
		return err
	}

	_, err = db.q.ExecContext(ctx,
		`INSERT INTO stories (id, user_id, date, doc) VALUES (?, ?, ?, ?)`,
		story.ID, story.UserID, story.Date.UnixNano(), doc,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating story: %w", err)
	}
	return nil
}

func (db *DB) GetStoryByID(ctx context.Context, id string) (*model.Story, error) {
	return getDoc[model.Story](ctx, db.q, "Story", id, `SELECT doc FROM stories WHERE id = ?`, id)
}

func (db *DB) ListStories(ctx context.Context, userID string) ([]model.Story, error) {
	if userID != "" {
		return listDocs[model.Story](ctx, db.q,
			`SELECT doc FROM stories WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	}
	return listDocs[model.Story](ctx, db.q, `SELECT doc FROM stories ORDER BY date DESC, id DESC`)
}

func (db *DB) GetStoriesByIDs(ctx context.Context, ids []string) ([]model.Story, error) {
	if len(ids) == 0 {
		return []model.Story{}, nil
	}
	placeholders, args := inClause(ids)
	return listDocs[model.Story](ctx, db.q,
		`SELECT doc FROM stories WHERE id IN (`+placeholders+`) ORDER BY date DESC, id DESC`, args...)
}

func (db *DB) UpdateStory(ctx context.Context, story *model.Story) error {
	return db.mutateStory(ctx, story.ID, func(stored *model.Story) {
		stored.Title = story.Title
		stored.Text = story.Text
		*story = *stored
	})
}

func (db *DB) PushStoryComment(ctx context.Context, storyID, commentID string) error {
	return db.mutateStory(ctx, storyID, func(s *model.Story) {
		s.Comments = pushRef(s.Comments, commentID)
	})
}

func (db *DB) PullStoryComment(ctx context.Context, storyID, commentID string) error {
	return ignoreNotFound(db.mutateStory(ctx, storyID, func(s *model.Story) {
		s.Comments = pullRef(s.Comments, commentID)
	}))
}

func (db *DB) DeleteStory(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting story %s: %w", id, err)
	}
	return requireAffected(res, "Story", id)
}

func (db *DB) DeleteStoriesByUser(ctx context.Context, userID string) error {
	if _, err := db.q.ExecContext(ctx, `DELETE FROM stories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting stories of user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) mutateStory(ctx context.Context, id string, fn func(*model.Story)) error {
	return db.withTx(ctx, func(tx *DB) error {
		s, err := tx.GetStoryByID(ctx, id)
		if err != nil {
			return err
		}
		fn(s)
		normalizeStory(s)
		return tx.writeDoc(ctx, "stories", s.ID, s)
	})
}

func normalizeStory(s *model.Story) {
	s.Reactions = s.Reactions.Normalized()
	if s.Comments == nil {
		s.Comments = []string{}
	}
}
