// Package sqlite implements repository.Store on an embedded SQLite database.
//
// DOCUMENT TABLES:
// Each entity is stored as a document: a `doc` TEXT column holding the
// entity encoded as relaxed MongoDB Extended JSON (the same bson tags the
// Mongo backend uses), plus a few plain columns that are indexed for lookups
// and ordering (user_id, email, category, parent, date). Reference lists and
// reactions live inside the document and are read with SQLite's JSON1
// functions where a query needs them (json_each).
//
// CONNECTIONS:
// The pool is limited to one connection. SQLite serialises writers anyway, an
// in-memory database (":memory:") only exists on the connection that created
// it, and a transaction-bound DB must be the only user of that connection.
// Code running inside RunInTx therefore uses the tx Store it was given, never
// the outer one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// querier is the subset of *sql.DB and *sql.Tx the repository methods use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite store. A DB returned to a RunInTx callback is bound to
// that transaction.
type DB struct {
	conn *sql.DB
	q    querier
	inTx bool
}

// New opens (or creates) the database and runs migrations.
//
// dbPath examples:
//   - "data/storyline.db" → file-based database
//   - ":memory:"          → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn, q: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. It is a no-op on a transaction-bound DB.
func (db *DB) Close() error {
	if db.inTx {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// RunInTx runs fn inside one SQLite transaction. Nested calls join the
// enclosing transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return db.withTx(ctx, func(tx *DB) error {
		return fn(ctx, tx)
	})
}

func (db *DB) withTx(ctx context.Context, fn func(tx *DB) error) error {
	if db.inTx {
		return fn(db)
	}

	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(&DB{conn: db.conn, q: sqlTx, inTx: true}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the document tables. CREATE ... IF NOT EXISTS keeps it
// safe to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id        TEXT PRIMARY KEY,
			email     TEXT NOT NULL UNIQUE,
			github_id INTEGER UNIQUE,
			date      INTEGER NOT NULL,
			doc       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS profiles (
			id      TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			doc     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
			id       TEXT PRIMARY KEY,
			user_id  TEXT NOT NULL,
			category TEXT NOT NULL,
			date     INTEGER NOT NULL,
			doc      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
		CREATE INDEX IF NOT EXISTS idx_posts_category_date ON posts(category, date);

		CREATE TABLE IF NOT EXISTS stories (
			id      TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date    INTEGER NOT NULL,
			doc     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stories_user_id ON stories(user_id);

		CREATE TABLE IF NOT EXISTS comments (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			parent_kind TEXT NOT NULL,
			parent_id   TEXT NOT NULL,
			date        INTEGER NOT NULL,
			doc         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_kind, parent_id, date);
		CREATE INDEX IF NOT EXISTS idx_comments_user_id ON comments(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// =========================================================================
// DOCUMENT HELPERS
// =========================================================================

// now returns the current time at the millisecond precision documents keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func encodeDoc(v any) (string, error) {
	b, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding document: %w", err)
	}
	return string(b), nil
}

func decodeDoc[T any](raw string) (*T, error) {
	var v T
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &v); err != nil {
		return nil, fmt.Errorf("sqlite: decoding document: %w", err)
	}
	return &v, nil
}

// getDoc loads exactly one document; no row becomes apperror.NotFound.
func getDoc[T any](ctx context.Context, q querier, resource, key, query string, args ...any) (*T, error) {
	var raw string
	err := q.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", strings.ToLower(resource), key, err)
	}
	return decodeDoc[T](raw)
}

// listDocs runs a query whose single column is a document.
func listDocs[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying documents: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scanning document: %w", err)
		}
		v, err := decodeDoc[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating documents: %w", err)
	}
	return out, nil
}

// requireAffected turns "0 rows affected" into a NotFound.
func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// inClause returns "?,?,?" and the matching args for an IN (...) list.
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// writeDoc replaces the document of one row. table is always a constant.
func (db *DB) writeDoc(ctx context.Context, table, id string, v any) error {
	doc, err := encodeDoc(v)
	if err != nil {
		return err
	}
	if _, err := db.q.ExecContext(ctx, `UPDATE `+table+` SET doc = ? WHERE id = ?`, doc, id); err != nil {
		return fmt.Errorf("sqlite: updating %s %s: %w", table, id, err)
	}
	return nil
}

// pushRef puts id at the head of refs, removing an older occurrence.
func pushRef(refs []string, id string) []string {
	return append([]string{id}, pullRef(refs, id)...)
}

func pullRef(refs []string, id string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}

func ignoreNotFound(err error) error {
	if apperror.IsNotFound(err) {
		return nil
	}
	return err
}
