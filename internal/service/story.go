package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/cascade"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

// StoryService manages stories: titled texts owned by a user and listed on
// the owner's profile.
type StoryService struct {
	base
}

func NewStoryService(d Deps) *StoryService {
	return &StoryService{base: newBase(d)}
}

type StoryInput struct {
	Title string
	Text  string
}

// StoryPatch is a partial update; nil fields are left unchanged.
type StoryPatch struct {
	Title *string
	Text  *string
}

func (s *StoryService) Create(ctx context.Context, userID string, in StoryInput) (*model.StoryView, error) {
	title, text := s.clean.Text(in.Title), s.clean.Text(in.Text)

	var v apperror.ValidationErrors
	if title == "" {
		v.Add("title", msgTitleRequired)
	}
	if text == "" {
		v.Add("text", msgTextRequired)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	story := model.NewStory(userID, title, text)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := ensureProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.CreateStory(ctx, story); err != nil {
			return err
		}
		return tx.PushProfileRef(ctx, userID, model.KindStory, story.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("service/story: creating story: %w", err)
	}

	s.logger.Info("story created", slog.String("id", story.ID), slog.String("userID", userID))
	s.publish(ctx, events.New(events.StoryCreated, userID, story.ID, nil))

	view := model.NewStoryView(story, user.Author())
	return &view, nil
}

// List returns every story, newest first.
func (s *StoryService) List(ctx context.Context) ([]model.StoryView, error) {
	stories, err := s.store.ListStories(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("service/story: listing stories: %w", err)
	}

	ownerIDs := make([]string, len(stories))
	for i, st := range stories {
		ownerIDs[i] = st.UserID
	}
	authors, err := s.authors(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("service/story: loading authors: %w", err)
	}

	views := make([]model.StoryView, len(stories))
	for i := range stories {
		views[i] = model.NewStoryView(&stories[i], authors[stories[i].UserID])
	}
	return views, nil
}

// Get returns one story with its comments and all authors populated.
func (s *StoryService) Get(ctx context.Context, id string) (*model.StoryDetail, error) {
	story, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsByParent(ctx, model.ParentRef{Kind: model.KindStory, ID: story.ID})
	if err != nil {
		return nil, fmt.Errorf("service/story: loading comments: %w", err)
	}

	ids := []string{story.UserID}
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	authors, err := s.authors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/story: loading authors: %w", err)
	}

	detail := &model.StoryDetail{
		StoryView: model.NewStoryView(story, authors[story.UserID]),
		Comments:  make([]model.CommentView, len(comments)),
	}
	for i := range comments {
		detail.Comments[i] = model.NewCommentView(&comments[i], authors[comments[i].UserID])
	}
	return detail, nil
}

func (s *StoryService) Update(ctx context.Context, userID, id string, patch StoryPatch) (*model.StoryView, error) {
	story, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var v apperror.ValidationErrors
	if patch.Title != nil {
		if story.Title = s.clean.Text(*patch.Title); story.Title == "" {
			v.Add("title", msgTitleRequired)
		}
	}
	if patch.Text != nil {
		if story.Text = s.clean.Text(*patch.Text); story.Text == "" {
			v.Add("text", msgTextRequired)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("service/story: updating story %s: %w", id, err)
	}
	author, err := s.author(ctx, story.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/story: loading author: %w", err)
	}
	view := model.NewStoryView(story, author)
	return &view, nil
}

// Delete removes an owned story, its comments and the profile reference.
func (s *StoryService) Delete(ctx context.Context, userID, id string) error {
	story, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	parent := model.ParentRef{Kind: model.KindStory, ID: story.ID}
	err = s.runCascade(ctx, func(tx repository.Store) cascade.Plan {
		return cascade.Plan{
			Op: "delete story",
			Steps: []cascade.Step{
				{Name: "unlink from profile", Run: func(ctx context.Context) error {
					return tx.PullProfileRef(ctx, story.UserID, model.KindStory, story.ID)
				}},
				{Name: "delete comments", Run: func(ctx context.Context) error {
					return tx.DeleteCommentsByParent(ctx, parent)
				}},
			},
			Final: cascade.Step{Name: "delete story", Run: func(ctx context.Context) error {
				return tx.DeleteStory(ctx, story.ID)
			}},
		}
	})
	if err != nil {
		return fmt.Errorf("service/story: deleting story %s: %w", id, err)
	}

	s.logger.Info("story deleted", slog.String("id", id), slog.String("userID", userID))
	s.publish(ctx, events.New(events.StoryDeleted, userID, id, nil))
	return nil
}

func (s *StoryService) load(ctx context.Context, id string) (*model.Story, error) {
	if err := checkID("story", id); err != nil {
		return nil, err
	}
	return s.store.GetStoryByID(ctx, id)
}

func (s *StoryService) owned(ctx context.Context, userID, id string) (*model.Story, error) {
	story, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, apperror.Forbidden(msgNotAuthorized)
	}
	return story, nil
}
