package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test its own empty database. The pool is capped at
// one connection, so the in-memory database lives exactly as long as the DB.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestPost(t *testing.T, db *DB, userID, title string, payload model.Payload) *model.Post {
	t.Helper()
	post := model.NewPost(userID, title, payload)
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func createTestStory(t *testing.T, db *DB, userID, title string) *model.Story {
	t.Helper()
	story := model.NewStory(userID, title, "text of "+title)
	if err := db.CreateStory(context.Background(), story); err != nil {
		t.Fatalf("failed to create test story: %v", err)
	}
	return story
}

func createTestComment(t *testing.T, db *DB, parent model.ParentRef, userID, text string) *model.Comment {
	t.Helper()
	comment, err := model.NewComment(parent, userID, text)
	if err != nil {
		t.Fatalf("NewComment() error = %v", err)
	}
	if err := db.CreateComment(context.Background(), comment); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestRunInTx_Commit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var created *model.User
	err := db.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		created = &model.User{Name: "Ann", Email: "ann@example.com"}
		if err := tx.CreateUser(ctx, created); err != nil {
			return err
		}
		return tx.CreateProfile(ctx, model.NewProfile(created.ID))
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}

	if _, err := db.GetUserByID(ctx, created.ID); err != nil {
		t.Errorf("user not committed: %v", err)
	}
	if _, err := db.GetProfileByUser(ctx, created.ID); err != nil {
		t.Errorf("profile not committed: %v", err)
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var userID string
	err := db.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		u := &model.User{Name: "Ann", Email: "ann@example.com"}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		userID = u.ID
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx() error = %v, want boom", err)
	}

	_, err = db.GetUserByID(ctx, userID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() after rollback error = %v, want ErrNotFound", err)
	}
}

func TestRunInTx_NestedMutationsJoin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	if err := db.CreateProfile(ctx, model.NewProfile(user.ID)); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	// PushProfileRef opens its own transaction; inside RunInTx it must join
	// the outer one instead of waiting for the single connection.
	err := db.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		post := model.NewPost(user.ID, "t", model.TextPayload{Text: "x"})
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		return tx.PushProfileRef(ctx, user.ID, model.KindPost, post.ID)
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}

	profile, err := db.GetProfileByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfileByUser() error = %v", err)
	}
	if len(profile.Posts) != 1 {
		t.Errorf("len(Posts) = %d, want 1", len(profile.Posts))
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}
