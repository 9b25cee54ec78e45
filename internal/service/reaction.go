package service

import (
	"context"
	"fmt"

	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
)

// ReactionService toggles likes and dislikes on posts, stories and comments.
type ReactionService struct {
	base
}

func NewReactionService(d Deps) *ReactionService {
	return &ReactionService{base: newBase(d)}
}

// ToggleResult is the outcome of one toggle. Side is the list the reaction
// kind lands in (likes for a like, dislikes for a dislike) after the toggle.
type ToggleResult struct {
	Side  []string
	State model.ReactionState
}

// Toggle applies reaction by userID to the item, following the state
// machine in model.Reactions.Toggle. The store applies it as one atomic
// change.
func (s *ReactionService) Toggle(ctx context.Context, userID string, kind model.ContentKind, id string, reaction model.ReactionKind) (*ToggleResult, error) {
	if err := checkID(string(kind), id); err != nil {
		return nil, err
	}

	state, reactions, err := s.store.ToggleReaction(ctx, kind, id, userID, reaction)
	if err != nil {
		return nil, fmt.Errorf("service/reaction: toggling %s on %s %s: %w", reaction, kind, id, err)
	}
	result := ToggleResult{Side: reactions.Side(reaction), State: state}

	s.publish(ctx, events.New(events.ReactionToggled, userID, id, map[string]string{
		"kind":     string(kind),
		"reaction": string(reaction),
		"state":    result.State.String(),
	}))
	return &result, nil
}
