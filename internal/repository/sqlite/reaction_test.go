package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

func TestToggleReaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Ann", "ann@example.com")
	post := createTestPost(t, db, user.ID, "p", model.TextPayload{Text: "x"})

	steps := []struct {
		user      string
		reaction  model.ReactionKind
		wantState model.ReactionState
	}{
		{"u1", model.Like, model.Liked},
		{"u2", model.Like, model.Liked},
		{"u3", model.Dislike, model.Disliked},
		{"u1", model.Dislike, model.Disliked},
		{"u2", model.Like, model.NoReaction},
	}
	for i, s := range steps {
		state, _, err := db.ToggleReaction(ctx, model.KindPost, post.ID, s.user, s.reaction)
		if err != nil {
			t.Fatalf("step %d: ToggleReaction() error = %v", i, err)
		}
		if state != s.wantState {
			t.Errorf("step %d: state = %v, want %v", i, state, s.wantState)
		}
	}

	found, _ := db.GetPostByID(ctx, post.ID)
	if len(found.Likes) != 0 {
		t.Errorf("Likes = %v, want empty", found.Likes)
	}
	if !equalIDs(found.Dislikes, []string{"u1", "u3"}) {
		t.Errorf("Dislikes = %v, want [u1 u3]", found.Dislikes)
	}
}

func TestToggleReaction_Errors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, _, err := db.ToggleReaction(ctx, model.KindComment, "missing", "u1", model.Like); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing comment: error = %v, want not found", err)
	}
	if _, _, err := db.ToggleReaction(ctx, model.ContentKind("profile"), "x", "u1", model.Like); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown kind: error = %v, want validation", err)
	}
}

func TestWithdrawReactions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ann := createTestUser(t, db, "Ann", "ann@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	post := createTestPost(t, db, ann.ID, "p", model.TextPayload{Text: "x"})
	story := createTestStory(t, db, ann.ID, "s")
	comment := createTestComment(t, db, model.ParentRef{Kind: model.KindStory, ID: story.ID}, ann.ID, "c")
	untouched := createTestPost(t, db, ann.ID, "other", model.TextPayload{Text: "y"})

	toggles := []struct {
		kind     model.ContentKind
		id       string
		user     string
		reaction model.ReactionKind
	}{
		{model.KindPost, post.ID, ann.ID, model.Like},
		{model.KindPost, post.ID, bob.ID, model.Like},
		{model.KindStory, story.ID, bob.ID, model.Dislike},
		{model.KindComment, comment.ID, bob.ID, model.Like},
		{model.KindPost, untouched.ID, ann.ID, model.Like},
	}
	for _, tg := range toggles {
		if _, _, err := db.ToggleReaction(ctx, tg.kind, tg.id, tg.user, tg.reaction); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.WithdrawReactions(ctx, bob.ID); err != nil {
		t.Fatalf("WithdrawReactions() error = %v", err)
	}

	p, _ := db.GetPostByID(ctx, post.ID)
	if !equalIDs(p.Likes, []string{ann.ID}) {
		t.Errorf("post Likes = %v, want only Ann", p.Likes)
	}
	s, _ := db.GetStoryByID(ctx, story.ID)
	if len(s.Dislikes) != 0 {
		t.Errorf("story Dislikes = %v, want empty", s.Dislikes)
	}
	c, _ := db.GetCommentByID(ctx, comment.ID)
	if len(c.Likes) != 0 {
		t.Errorf("comment Likes = %v, want empty", c.Likes)
	}
	u, _ := db.GetPostByID(ctx, untouched.ID)
	if !equalIDs(u.Likes, []string{ann.ID}) {
		t.Errorf("unrelated post Likes = %v", u.Likes)
	}

	// Nothing left to withdraw.
	if err := db.WithdrawReactions(ctx, bob.ID); err != nil {
		t.Errorf("second WithdrawReactions() error = %v", err)
	}
}
