package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactionsToggle(t *testing.T) {
	tests := []struct {
		name      string
		start     Reactions
		kind      ReactionKind
		wantState ReactionState
		wantLikes []string
		wantDis   []string
	}{
		{"none + like", NewReactions(), Like, Liked, []string{"u1"}, []string{}},
		{"none + dislike", NewReactions(), Dislike, Disliked, []string{}, []string{"u1"}},
		{"liked + like toggles off", Reactions{Likes: []string{"u1"}, Dislikes: []string{}}, Like, NoReaction, []string{}, []string{}},
		{"liked + dislike switches", Reactions{Likes: []string{"u1"}, Dislikes: []string{}}, Dislike, Disliked, []string{}, []string{"u1"}},
		{"disliked + dislike toggles off", Reactions{Likes: []string{}, Dislikes: []string{"u1"}}, Dislike, NoReaction, []string{}, []string{}},
		{"disliked + like switches", Reactions{Likes: []string{}, Dislikes: []string{"u1"}}, Like, Liked, []string{"u1"}, []string{}},
		{"new like goes first", Reactions{Likes: []string{"u2", "u3"}, Dislikes: []string{}}, Like, Liked, []string{"u1", "u2", "u3"}, []string{}},
		{"other users untouched", Reactions{Likes: []string{"u2"}, Dislikes: []string{"u3", "u1"}}, Like, Liked, []string{"u1", "u2"}, []string{"u3"}},
		{"repairs a user in both lists", Reactions{Likes: []string{"u1"}, Dislikes: []string{"u1"}}, Dislike, Disliked, []string{}, []string{"u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.start
			got := r.Toggle(tt.kind, "u1")
			assert.Equal(t, tt.wantState, got)
			assert.Equal(t, tt.wantLikes, r.Likes)
			assert.Equal(t, tt.wantDis, r.Dislikes)
			assert.Equal(t, tt.wantState, r.State("u1"))
		})
	}
}

// Any sequence of toggles by any users keeps every user in at most one list,
// at most once.
func TestReactionsToggle_NeverBoth(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	users := []string{"a", "b", "c", "d"}
	r := NewReactions()

	for i := 0; i < 500; i++ {
		kind := Like
		if rng.Intn(2) == 1 {
			kind = Dislike
		}
		r.Toggle(kind, users[rng.Intn(len(users))])

		for _, u := range users {
			inLikes := countOf(r.Likes, u)
			inDislikes := countOf(r.Dislikes, u)
			if inLikes+inDislikes > 1 {
				t.Fatalf("step %d: user %s appears %d times in likes and %d in dislikes", i, u, inLikes, inDislikes)
			}
		}
	}
}

func TestReactionsWithdraw(t *testing.T) {
	r := Reactions{Likes: []string{"a", "b"}, Dislikes: []string{"c"}}

	assert.True(t, r.Withdraw("b"))
	assert.False(t, r.Withdraw("zz"))
	assert.True(t, r.Withdraw("c"))
	assert.Equal(t, []string{"a"}, r.Likes)
	assert.Empty(t, r.Dislikes)
}

func TestReactionsSide(t *testing.T) {
	var r Reactions
	assert.NotNil(t, r.Side(Like), "nil lists come back empty so they encode as []")

	r.Toggle(Dislike, "x")
	assert.Equal(t, []string{"x"}, r.Side(Dislike))
	assert.Empty(t, r.Side(Like))
}

func countOf(list []string, v string) int {
	n := 0
	for i := range list {
		if list[i] == v {
			n++
		}
	}
	return n
}
