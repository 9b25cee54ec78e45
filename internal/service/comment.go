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

// CommentService manages comments on posts and stories. Every mutation
// answers with the parent's comment list, newest first, as the client
// re-renders the whole thread.
type CommentService struct {
	base
}

func NewCommentService(d Deps) *CommentService {
	return &CommentService{base: newBase(d)}
}

// Create attaches a comment by userID to parent.
func (s *CommentService) Create(ctx context.Context, userID string, parent model.ParentRef, text string) ([]model.CommentView, error) {
	if err := s.checkParent(ctx, parent); err != nil {
		return nil, err
	}
	if text = s.clean.Text(text); text == "" {
		return nil, apperror.ValidationFailed("text", msgTextRequired)
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	comment, err := model.NewComment(parent, userID, text)
	if err != nil {
		return nil, apperror.ValidationFailed("parent", err.Error())
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		if parent.Kind == model.KindStory {
			return tx.PushStoryComment(ctx, parent.ID, comment.ID)
		}
		return tx.PushPostComment(ctx, parent.ID, comment.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("service/comment: creating comment on %s: %w", parent, err)
	}

	s.logger.Info("comment created", slog.String("id", comment.ID), slog.String("parent", parent.String()))
	s.publish(ctx, events.New(events.CommentCreated, userID, comment.ID,
		map[string]string{"parentKind": string(parent.Kind), "parentId": parent.ID}))

	return s.thread(ctx, parent)
}

// List returns the comments of an existing post or story.
func (s *CommentService) List(ctx context.Context, parent model.ParentRef) ([]model.CommentView, error) {
	if err := s.checkParent(ctx, parent); err != nil {
		return nil, err
	}
	return s.thread(ctx, parent)
}

// Update replaces the text of an owned comment.
func (s *CommentService) Update(ctx context.Context, userID, id, text string) ([]model.CommentView, error) {
	comment, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if comment.Text = s.clean.Text(text); comment.Text == "" {
		return nil, apperror.ValidationFailed("text", msgTextRequired)
	}

	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: updating comment %s: %w", id, err)
	}
	return s.thread(ctx, comment.Parent())
}

// Delete removes an owned comment and its reference on the parent.
func (s *CommentService) Delete(ctx context.Context, userID, id string) ([]model.CommentView, error) {
	comment, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	err = s.runCascade(ctx, func(tx repository.Store) cascade.Plan {
		return cascade.Plan{
			Op: "delete comment",
			Steps: []cascade.Step{
				{Name: "unlink from parent", Run: func(ctx context.Context) error {
					return unlinkComment(ctx, tx, comment)
				}},
			},
			Final: cascade.Step{Name: "delete comment", Run: func(ctx context.Context) error {
				return tx.DeleteComment(ctx, comment.ID)
			}},
		}
	})
	if err != nil {
		return nil, fmt.Errorf("service/comment: deleting comment %s: %w", id, err)
	}

	s.logger.Info("comment deleted", slog.String("id", id), slog.String("userID", userID))
	s.publish(ctx, events.New(events.CommentDeleted, userID, id, nil))

	return s.thread(ctx, comment.Parent())
}

// checkParent validates the parent id and that the parent exists.
func (s *CommentService) checkParent(ctx context.Context, parent model.ParentRef) error {
	switch parent.Kind {
	case model.KindPost:
		if err := checkID("post", parent.ID); err != nil {
			return err
		}
		_, err := s.store.GetPostByID(ctx, parent.ID)
		return err
	case model.KindStory:
		if err := checkID("story", parent.ID); err != nil {
			return err
		}
		_, err := s.store.GetStoryByID(ctx, parent.ID)
		return err
	default:
		return apperror.ValidationFailed("parent", model.ErrInvalidParent.Error())
	}
}

func (s *CommentService) owned(ctx context.Context, userID, id string) (*model.Comment, error) {
	if err := checkID("comment", id); err != nil {
		return nil, err
	}
	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, apperror.Forbidden(msgNotAuthorized)
	}
	return comment, nil
}

// thread loads the comments of parent with their authors.
func (s *CommentService) thread(ctx context.Context, parent model.ParentRef) ([]model.CommentView, error) {
	comments, err := s.store.ListCommentsByParent(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments of %s: %w", parent, err)
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	authors, err := s.authors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/comment: loading authors: %w", err)
	}

	views := make([]model.CommentView, len(comments))
	for i := range comments {
		views[i] = model.NewCommentView(&comments[i], authors[comments[i].UserID])
	}
	return views, nil
}
