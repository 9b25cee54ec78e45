package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/model"
)

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.Date = now()
	comment.Reactions = comment.Reactions.Normalized()

	doc, err := encodeDoc(comment)
	if err != nil {
		return err
	}

	parent := comment.Parent()
	_, err = db.q.ExecContext(ctx,
		`INSERT INTO comments (id, user_id, parent_kind, parent_id, date, doc) VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.UserID, string(parent.Kind), parent.ID, comment.Date.UnixNano(), doc,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	return getDoc[model.Comment](ctx, db.q, "Comment", id, `SELECT doc FROM comments WHERE id = ?`, id)
}

func (db *DB) ListCommentsByParent(ctx context.Context, parent model.ParentRef) ([]model.Comment, error) {
	return listDocs[model.Comment](ctx, db.q,
		`SELECT doc FROM comments WHERE parent_kind = ? AND parent_id = ? ORDER BY date DESC, id DESC`,
		string(parent.Kind), parent.ID)
}

func (db *DB) ListCommentsByUser(ctx context.Context, userID string) ([]model.Comment, error) {
	return listDocs[model.Comment](ctx, db.q,
		`SELECT doc FROM comments WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
}

func (db *DB) UpdateComment(ctx context.Context, comment *model.Comment) error {
	return db.mutateComment(ctx, comment.ID, func(stored *model.Comment) {
		stored.Text = comment.Text
		*comment = *stored
	})
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return requireAffected(res, "Comment", id)
}

func (db *DB) DeleteCommentsByParent(ctx context.Context, parent model.ParentRef) error {
	_, err := db.q.ExecContext(ctx,
		`DELETE FROM comments WHERE parent_kind = ? AND parent_id = ?`, string(parent.Kind), parent.ID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comments of %s: %w", parent, err)
	}
	return nil
}

func (db *DB) DeleteCommentsByUser(ctx context.Context, userID string) error {
	if _, err := db.q.ExecContext(ctx, `DELETE FROM comments WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting comments of user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) mutateComment(ctx context.Context, id string, fn func(*model.Comment)) error {
	return db.withTx(ctx, func(tx *DB) error {
		c, err := tx.GetCommentByID(ctx, id)
		if err != nil {
			return err
		}
		fn(c)
		c.Reactions = c.Reactions.Normalized()
		return tx.writeDoc(ctx, "comments", c.ID, c)
	})
}
