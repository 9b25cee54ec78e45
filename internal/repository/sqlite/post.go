package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Date = now()
	normalizePost(post)

	doc, err := encodeDoc(post)
	if err != nil {
		return err
	}

	_, err = db.q.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, category, date, doc) VALUES (?, ?, ?, ?, ?)`,
		post.ID, post.UserID, string(post.Data.CollectionType), post.Date.UnixNano(), doc,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	return getDoc[model.Post](ctx, db.q, "Post", id, `SELECT doc FROM posts WHERE id = ?`, id)
}

// ListPosts returns posts newest first. Ties on date fall back to the id,
// which is time-ordered as well.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}

	query := `SELECT doc FROM posts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, id DESC`

	return listDocs[model.Post](ctx, db.q, query, args...)
}

func (db *DB) GetPostsByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	placeholders, args := inClause(ids)
	return listDocs[model.Post](ctx, db.q,
		`SELECT doc FROM posts WHERE id IN (`+placeholders+`) ORDER BY date DESC, id DESC`, args...)
}

// UpdatePost writes title and data; the category column never changes.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	return db.mutatePost(ctx, post.ID, func(stored *model.Post) {
		stored.Title = post.Title
		stored.Data = post.Data
		*post = *stored
	})
}

func (db *DB) PushPostComment(ctx context.Context, postID, commentID string) error {
	return db.mutatePost(ctx, postID, func(p *model.Post) {
		p.Comments = pushRef(p.Comments, commentID)
	})
}

func (db *DB) PullPostComment(ctx context.Context, postID, commentID string) error {
	return ignoreNotFound(db.mutatePost(ctx, postID, func(p *model.Post) {
		p.Comments = pullRef(p.Comments, commentID)
	}))
}

func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return requireAffected(res, "Post", id)
}

func (db *DB) DeletePostsByUser(ctx context.Context, userID string) error {
	if _, err := db.q.ExecContext(ctx, `DELETE FROM posts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting posts of user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) mutatePost(ctx context.Context, id string, fn func(*model.Post)) error {
	return db.withTx(ctx, func(tx *DB) error {
		p, err := tx.GetPostByID(ctx, id)
		if err != nil {
			return err
		}
		fn(p)
		normalizePost(p)
		return tx.writeDoc(ctx, "posts", p.ID, p)
	})
}

func normalizePost(p *model.Post) {
	p.Reactions = p.Reactions.Normalized()
	if p.Comments == nil {
		p.Comments = []string{}
	}
}
