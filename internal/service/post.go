package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/cascade"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

const (
	msgURLRequired     = "URL is required"
	msgURLInvalid      = "URL must be a valid http(s) URL"
	msgInvalidCategory = "Invalid category"
)

// PostService manages posts. A post's category is fixed at creation and
// decides which payload fields it has.
type PostService struct {
	base
}

func NewPostService(d Deps) *PostService {
	return &PostService{base: newBase(d)}
}

// PostInput is the body of POST /api/posts/{category}. Which of URL,
// Description and Text are read depends on the category.
type PostInput struct {
	Title       string
	URL         string
	Description string
	Text        string
}

// PostPatch is a partial update; nil fields are left unchanged.
type PostPatch struct {
	Title       *string
	URL         *string
	Description *string
	Text        *string
}

// Create stores a post for userID and prepends it to their profile. A
// missing profile is created on the way.
func (s *PostService) Create(ctx context.Context, userID, category string, in PostInput) (*model.PostView, error) {
	cat, ok := model.ParseCategory(category)
	if !ok {
		return nil, apperror.ValidationFailed("category", msgInvalidCategory)
	}

	title := s.clean.Text(in.Title)
	var v apperror.ValidationErrors
	if title == "" {
		v.Add("title", msgTitleRequired)
	}

	var payload model.Payload
	if cat.IsMedia() {
		u := strings.TrimSpace(in.URL)
		switch {
		case u == "":
			v.Add("url", msgURLRequired)
		case !validURL(u):
			v.Add("url", msgURLInvalid)
		}
		payload = model.MediaPayload{Kind: cat, URL: u, Description: s.clean.Text(in.Description)}
	} else {
		text := s.clean.Text(in.Text)
		if text == "" {
			v.Add("text", msgTextRequired)
		}
		payload = model.TextPayload{Text: text}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	post := model.NewPost(userID, title, payload)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := ensureProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		return tx.PushProfileRef(ctx, userID, model.KindPost, post.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("category", string(cat)),
		slog.String("userID", userID),
	)
	s.publish(ctx, events.New(events.PostCreated, userID, post.ID, map[string]string{"category": string(cat)}))

	view := model.NewPostView(post, user.Author())
	return &view, nil
}

// List returns posts newest first. An empty category lists every post.
func (s *PostService) List(ctx context.Context, category string) ([]model.PostView, error) {
	var filter repository.PostFilter
	if category != "" {
		cat, ok := model.ParseCategory(category)
		if !ok {
			return nil, apperror.ValidationFailed("category", msgInvalidCategory)
		}
		filter.Category = cat
	}

	posts, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}

	ownerIDs := make([]string, len(posts))
	for i, p := range posts {
		ownerIDs[i] = p.UserID
	}
	authors, err := s.authors(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("service/post: loading authors: %w", err)
	}

	views := make([]model.PostView, len(posts))
	for i := range posts {
		views[i] = model.NewPostView(&posts[i], authors[posts[i].UserID])
	}
	return views, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.PostView, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, post)
}

// Update applies a patch from the owner. Fields that the post's category
// does not have are rejected.
func (s *PostService) Update(ctx context.Context, userID, id string, patch PostPatch) (*model.PostView, error) {
	post, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var v apperror.ValidationErrors
	if patch.Title != nil {
		if post.Title = s.clean.Text(*patch.Title); post.Title == "" {
			v.Add("title", msgTitleRequired)
		}
	}

	cat := post.Data.CollectionType
	foreign := func(field string) {
		v.Add(field, fmt.Sprintf("%s is not a field of %s posts", field, cat))
	}
	if cat.IsMedia() {
		if patch.Text != nil {
			foreign("text")
		}
		if patch.URL != nil {
			u := strings.TrimSpace(*patch.URL)
			switch {
			case u == "":
				v.Add("url", msgURLRequired)
			case !validURL(u):
				v.Add("url", msgURLInvalid)
			}
			post.Data.URL = u
		}
		if patch.Description != nil {
			post.Data.Description = s.clean.Text(*patch.Description)
		}
	} else {
		if patch.URL != nil {
			foreign("url")
		}
		if patch.Description != nil {
			foreign("description")
		}
		if patch.Text != nil {
			if post.Data.Text = s.clean.Text(*patch.Text); post.Data.Text == "" {
				v.Add("text", msgTextRequired)
			}
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %s: %w", id, err)
	}
	return s.view(ctx, post)
}

// Delete removes an owned post, its comments and the profile reference.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	post, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	parent := model.ParentRef{Kind: model.KindPost, ID: post.ID}
	err = s.runCascade(ctx, func(tx repository.Store) cascade.Plan {
		return cascade.Plan{
			Op: "delete post",
			Steps: []cascade.Step{
				{Name: "unlink from profile", Run: func(ctx context.Context) error {
					return tx.PullProfileRef(ctx, post.UserID, model.KindPost, post.ID)
				}},
				{Name: "delete comments", Run: func(ctx context.Context) error {
					return tx.DeleteCommentsByParent(ctx, parent)
				}},
			},
			Final: cascade.Step{Name: "delete post", Run: func(ctx context.Context) error {
				return tx.DeletePost(ctx, post.ID)
			}},
		}
	})
	if err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", id, err)
	}

	s.logger.Info("post deleted", slog.String("id", id), slog.String("userID", userID))
	s.publish(ctx, events.New(events.PostDeleted, userID, id, nil))
	return nil
}

func (s *PostService) load(ctx context.Context, id string) (*model.Post, error) {
	if err := checkID("post", id); err != nil {
		return nil, err
	}
	return s.store.GetPostByID(ctx, id)
}

// owned loads a post and checks that userID owns it.
func (s *PostService) owned(ctx context.Context, userID, id string) (*model.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, apperror.Forbidden(msgNotAuthorized)
	}
	return post, nil
}

func (s *PostService) view(ctx context.Context, post *model.Post) (*model.PostView, error) {
	author, err := s.author(ctx, post.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/post: loading author: %w", err)
	}
	view := model.NewPostView(post, author)
	return &view, nil
}
