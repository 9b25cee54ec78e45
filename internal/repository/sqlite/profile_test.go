package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

func createTestProfile(t *testing.T, db *DB, userID string) *model.Profile {
	t.Helper()
	p := model.NewProfile(userID)
	if err := db.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

func TestProfileCreate_OnePerUser(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Ann", "ann@example.com")
	createTestProfile(t, db, user.ID)

	err := db.CreateProfile(context.Background(), model.NewProfile(user.ID))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateProfile() error = %v, want ErrConflict", err)
	}
}

func TestProfileGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	created := createTestProfile(t, db, user.ID)

	byUser, err := db.GetProfileByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfileByUser() error = %v", err)
	}
	if byUser.ID != created.ID {
		t.Errorf("ID = %q, want %q", byUser.ID, created.ID)
	}
	if byUser.Skills == nil || byUser.Posts == nil || byUser.Stories == nil {
		t.Error("lists should decode as empty, not nil")
	}

	byID, err := db.GetProfileByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetProfileByID() error = %v", err)
	}
	if byID.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", byID.UserID, user.ID)
	}

	if _, err := db.GetProfileByUser(ctx, "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfileByUser() error = %v, want ErrNotFound", err)
	}
}

func TestProfileUpdate_KeepsReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	createTestProfile(t, db, user.ID)

	if err := db.PushProfileRef(ctx, user.ID, model.KindPost, "p1"); err != nil {
		t.Fatalf("PushProfileRef() error = %v", err)
	}

	update := &model.Profile{UserID: user.ID, Bio: "writer", Skills: []string{"go", "prose"}}
	if err := db.UpdateProfile(ctx, update); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if update.ID == "" {
		t.Error("UpdateProfile() should fill in the stored profile")
	}
	found, _ := db.GetProfileByUser(ctx, user.ID)
	if found.Bio != "writer" {
		t.Errorf("Bio = %q, want %q", found.Bio, "writer")
	}
	if !equalIDs(found.Skills, []string{"go", "prose"}) {
		t.Errorf("Skills = %v", found.Skills)
	}
	if !equalIDs(found.Posts, []string{"p1"}) {
		t.Errorf("Posts = %v, want [p1]", found.Posts)
	}
}

func TestProfileRefs_PushPull(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	createTestProfile(t, db, user.ID)

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := db.PushProfileRef(ctx, user.ID, model.KindPost, id); err != nil {
			t.Fatalf("PushProfileRef(%s) error = %v", id, err)
		}
	}
	if err := db.PushProfileRef(ctx, user.ID, model.KindStory, "s1"); err != nil {
		t.Fatalf("PushProfileRef(story) error = %v", err)
	}
	if err := db.PullProfileRef(ctx, user.ID, model.KindPost, "p2"); err != nil {
		t.Fatalf("PullProfileRef() error = %v", err)
	}
	// Absent ids and absent profiles are not errors.
	if err := db.PullProfileRef(ctx, user.ID, model.KindPost, "never"); err != nil {
		t.Errorf("PullProfileRef(absent) error = %v", err)
	}
	if err := db.PullProfileRef(ctx, "nobody", model.KindPost, "p1"); err != nil {
		t.Errorf("PullProfileRef(no profile) error = %v", err)
	}

	p, _ := db.GetProfileByUser(ctx, user.ID)
	if !equalIDs(p.Posts, []string{"p3", "p1"}) {
		t.Errorf("Posts = %v, want [p3 p1]", p.Posts)
	}
	if !equalIDs(p.Stories, []string{"s1"}) {
		t.Errorf("Stories = %v, want [s1]", p.Stories)
	}
}

func TestProfileRefs_PushWithoutProfile(t *testing.T) {
	db := newTestDB(t)
	err := db.PushProfileRef(context.Background(), "nobody", model.KindPost, "p1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("PushProfileRef() error = %v, want ErrNotFound", err)
	}
}

func TestListProfilesAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ann := createTestUser(t, db, "Ann", "ann@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	createTestProfile(t, db, ann.ID)
	createTestProfile(t, db, bob.ID)

	all, err := db.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	if err := db.DeleteProfileByUser(ctx, ann.ID); err != nil {
		t.Fatalf("DeleteProfileByUser() error = %v", err)
	}
	// Deleting a missing profile is a no-op.
	if err := db.DeleteProfileByUser(ctx, ann.ID); err != nil {
		t.Errorf("second DeleteProfileByUser() error = %v", err)
	}
	all, _ = db.ListProfiles(ctx)
	if len(all) != 1 || all[0].UserID != bob.ID {
		t.Errorf("remaining profiles = %+v, want only Bob's", all)
	}
}
