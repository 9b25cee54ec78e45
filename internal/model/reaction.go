package model

import "slices"

// ReactionKind is one of the two mutually exclusive reactions.
type ReactionKind string

const (
	Like    ReactionKind = "like"
	Dislike ReactionKind = "dislike"
)

// ReactionState is the per-user state of one content item.
type ReactionState int

const (
	NoReaction ReactionState = iota
	Liked
	Disliked
)

func (s ReactionState) String() string {
	switch s {
	case Liked:
		return "liked"
	case Disliked:
		return "disliked"
	default:
		return "none"
	}
}

// Reactions holds the liking and disliking user ids of a Post, Story or Comment.
// Both lists are most-recent-first. A user id is in at most one of them.
type Reactions struct {
	Likes    []string `json:"likes"    bson:"likes"`
	Dislikes []string `json:"dislikes" bson:"dislikes"`
}

// NewReactions returns an empty set whose lists encode as [] rather than null.
func NewReactions() Reactions {
	return Reactions{Likes: []string{}, Dislikes: []string{}}
}

// State reports how userID currently reacts.
func (r Reactions) State(userID string) ReactionState {
	switch {
	case slices.Contains(r.Likes, userID):
		return Liked
	case slices.Contains(r.Dislikes, userID):
		return Disliked
	default:
		return NoReaction
	}
}

// Toggle applies one reaction request and returns the resulting state.
//
// STATE MACHINE (per user, per item):
//
//	none     + like    → liked
//	none     + dislike → disliked
//	liked    + like    → none      (toggle off)
//	liked    + dislike → disliked  (switch sides)
//	disliked + dislike → none
//	disliked + like    → liked
//
// Toggle never leaves userID in both lists, even if the input already did.
func (r *Reactions) Toggle(kind ReactionKind, userID string) ReactionState {
	current := r.State(userID)
	r.Likes = without(r.Likes, userID)
	r.Dislikes = without(r.Dislikes, userID)

	switch {
	case kind == Like && current != Liked:
		r.Likes = prepend(r.Likes, userID)
		return Liked
	case kind == Dislike && current != Disliked:
		r.Dislikes = prepend(r.Dislikes, userID)
		return Disliked
	default:
		return NoReaction
	}
}

// Withdraw removes every reaction of userID and reports whether anything changed.
func (r *Reactions) Withdraw(userID string) bool {
	if r.State(userID) == NoReaction {
		return false
	}
	r.Likes = without(r.Likes, userID)
	r.Dislikes = without(r.Dislikes, userID)
	return true
}

// Side returns the list that a reaction of the given kind lands in.
func (r Reactions) Side(kind ReactionKind) []string {
	if kind == Dislike {
		return orEmpty(r.Dislikes)
	}
	return orEmpty(r.Likes)
}

// Normalized replaces nil lists with empty ones.
func (r Reactions) Normalized() Reactions {
	return Reactions{Likes: orEmpty(r.Likes), Dislikes: orEmpty(r.Dislikes)}
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func prepend(list []string, id string) []string {
	return append([]string{id}, list...)
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
