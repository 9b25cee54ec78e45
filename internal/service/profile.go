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

// ProfileService manages the one-per-user public profile and owns the
// account deletion cascade.
type ProfileService struct {
	base
}

func NewProfileService(d Deps) *ProfileService {
	return &ProfileService{base: newBase(d)}
}

// ProfileInput is a partial profile; nil fields are left unchanged.
type ProfileInput struct {
	Bio    *string
	Skills *[]string
}

// Upsert creates the caller's profile if it is missing and applies the
// supplied fields.
func (s *ProfileService) Upsert(ctx context.Context, userID string, in ProfileInput) (*model.ProfileView, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		profile, err := tx.GetProfileByUser(ctx, userID)
		created := false
		if apperror.IsNotFound(err) {
			profile, created = model.NewProfile(userID), true
		} else if err != nil {
			return err
		}

		if in.Bio != nil {
			profile.Bio = s.clean.Text(*in.Bio)
		}
		if in.Skills != nil {
			profile.Skills = s.clean.List(*in.Skills)
		}

		if created {
			return tx.CreateProfile(ctx, profile)
		}
		return tx.UpdateProfile(ctx, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("service/profile: saving profile of %s: %w", userID, err)
	}

	return s.GetByUser(ctx, userID)
}

// GetByUser returns the populated profile of a user.
func (s *ProfileService) GetByUser(ctx context.Context, userID string) (*model.ProfileView, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

// GetByID returns the populated profile with the given profile id.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*model.ProfileView, error) {
	if err := checkID("profile", id); err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

// List returns every profile, populated. There is no pagination.
func (s *ProfileService) List(ctx context.Context) ([]model.ProfileView, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing profiles: %w", err)
	}

	var userIDs, postIDs, storyIDs []string
	for _, p := range profiles {
		userIDs = append(userIDs, p.UserID)
		postIDs = append(postIDs, p.Posts...)
		storyIDs = append(storyIDs, p.Stories...)
	}

	authors, err := s.authors(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading authors: %w", err)
	}
	posts, err := s.store.GetPostsByIDs(ctx, unique(postIDs))
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading posts: %w", err)
	}
	stories, err := s.store.GetStoriesByIDs(ctx, unique(storyIDs))
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading stories: %w", err)
	}

	views := make([]model.ProfileView, 0, len(profiles))
	for i := range profiles {
		views = append(views, model.NewProfileView(&profiles[i], authors[profiles[i].UserID], posts, stories))
	}
	return views, nil
}

// DeleteAccount removes the user and everything that refers to them:
// their comments (and the references to them), the comments on their
// content, their posts and stories, their reactions and their profile. The
// user record goes last, and only if every other step succeeded.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	err := s.runCascade(ctx, func(tx repository.Store) cascade.Plan {
		return cascade.Plan{
			Op: "delete account",
			Steps: []cascade.Step{
				{Name: "unlink comments", Run: func(ctx context.Context) error {
					comments, err := tx.ListCommentsByUser(ctx, userID)
					if err != nil {
						return err
					}
					for i := range comments {
						if err := unlinkComment(ctx, tx, &comments[i]); err != nil {
							return err
						}
					}
					return nil
				}},
				{Name: "delete comments on content", Run: func(ctx context.Context) error {
					posts, err := tx.ListPosts(ctx, repository.PostFilter{UserID: userID})
					if err != nil {
						return err
					}
					for _, p := range posts {
						if err := tx.DeleteCommentsByParent(ctx, model.ParentRef{Kind: model.KindPost, ID: p.ID}); err != nil {
							return err
						}
					}
					stories, err := tx.ListStories(ctx, userID)
					if err != nil {
						return err
					}
					for _, st := range stories {
						if err := tx.DeleteCommentsByParent(ctx, model.ParentRef{Kind: model.KindStory, ID: st.ID}); err != nil {
							return err
						}
					}
					return nil
				}},
				{Name: "delete comments", Run: func(ctx context.Context) error {
					return tx.DeleteCommentsByUser(ctx, userID)
				}},
				{Name: "delete posts", Run: func(ctx context.Context) error {
					return tx.DeletePostsByUser(ctx, userID)
				}},
				{Name: "delete stories", Run: func(ctx context.Context) error {
					return tx.DeleteStoriesByUser(ctx, userID)
				}},
				{Name: "withdraw reactions", Run: func(ctx context.Context) error {
					return tx.WithdrawReactions(ctx, userID)
				}},
				{Name: "delete profile", Run: func(ctx context.Context) error {
					return tx.DeleteProfileByUser(ctx, userID)
				}},
			},
			Final: cascade.Step{Name: "delete user", Run: func(ctx context.Context) error {
				return tx.DeleteUser(ctx, userID)
			}},
		}
	})
	if err != nil {
		return fmt.Errorf("service/profile: deleting account %s: %w", userID, err)
	}

	s.logger.Info("account deleted", slog.String("userID", userID))
	s.publish(ctx, events.New(events.UserDeleted, userID, userID, nil))
	return nil
}

func (s *ProfileService) view(ctx context.Context, profile *model.Profile) (*model.ProfileView, error) {
	author, err := s.author(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading owner: %w", err)
	}
	posts, err := s.store.GetPostsByIDs(ctx, profile.Posts)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading posts: %w", err)
	}
	stories, err := s.store.GetStoriesByIDs(ctx, profile.Stories)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading stories: %w", err)
	}
	view := model.NewProfileView(profile, author, posts, stories)
	return &view, nil
}

// unlinkComment removes a comment id from its parent's comment list.
func unlinkComment(ctx context.Context, tx repository.Store, c *model.Comment) error {
	parent := c.Parent()
	if parent.Kind == model.KindStory {
		return tx.PullStoryComment(ctx, parent.ID, c.ID)
	}
	return tx.PullPostComment(ctx, parent.ID, c.ID)
}
