package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

const msgUserExists = "User already exists"

// CreateUser assigns the id and date and inserts the user.
// A duplicate email (or GitHub id) is reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Date = now()

	doc, err := encodeDoc(user)
	if err != nil {
		return err
	}

	_, err = db.q.ExecContext(ctx,
		`INSERT INTO users (id, email, github_id, date, doc) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, nullableGitHubID(user.GitHubID), user.Date.UnixNano(), doc,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(msgUserExists)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return getDoc[model.User](ctx, db.q, "User", id,
		`SELECT doc FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return getDoc[model.User](ctx, db.q, "User", email,
		`SELECT doc FROM users WHERE email = ?`, email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return getDoc[model.User](ctx, db.q, "User", strconv.FormatInt(githubID, 10),
		`SELECT doc FROM users WHERE github_id = ?`, githubID)
}

// UpdateUser replaces the stored user document.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	doc, err := encodeDoc(user)
	if err != nil {
		return err
	}

	res, err := db.q.ExecContext(ctx,
		`UPDATE users SET email = ?, github_id = ?, doc = ? WHERE id = ?`,
		user.Email, nullableGitHubID(user.GitHubID), doc, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(msgUserExists)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return requireAffected(res, "User", user.ID)
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireAffected(res, "User", id)
}

func (db *DB) ListAuthors(ctx context.Context, ids []string) (map[string]model.Author, error) {
	authors := make(map[string]model.Author, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	placeholders, args := inClause(ids)
	users, err := listDocs[model.User](ctx, db.q,
		`SELECT doc FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing authors: %w", err)
	}
	for i := range users {
		authors[users[i].ID] = users[i].Author()
	}
	return authors, nil
}

// nullableGitHubID stores 0 as NULL so the UNIQUE index ignores accounts
// without a GitHub link.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
