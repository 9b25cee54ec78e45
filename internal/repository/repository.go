// Package repository declares the storage contracts used by the service layer.
//
// Two implementations exist: repository/mongodb (production) and
// repository/sqlite (embedded, used for local development and tests). Both
// store the same documents, keyed by xid string ids, and both report a missing
// record as apperror.ErrNotFound and a duplicate email as apperror.ErrConflict.
package repository

import (
	"context"

	"github.com/sakif/storyline/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	// ListAuthors resolves owner ids to Author projections. Unknown ids are
	// absent from the map.
	ListAuthors(ctx context.Context, ids []string) (map[string]model.Author, error)
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByUser(ctx context.Context, userID string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	// UpdateProfile writes bio and skills. Reference lists are only changed
	// through PushProfileRef and PullProfileRef.
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	// PushProfileRef puts contentID at the head of the posts or stories list.
	PushProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error
	// PullProfileRef removes contentID; removing an absent id is not an error.
	PullProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error
	DeleteProfileByUser(ctx context.Context, userID string) error
}

// PostFilter narrows ListPosts. The zero value lists everything.
type PostFilter struct {
	Category model.Category
	UserID   string
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	// UpdatePost writes title and data.
	UpdatePost(ctx context.Context, post *model.Post) error
	PushPostComment(ctx context.Context, postID, commentID string) error
	PullPostComment(ctx context.Context, postID, commentID string) error
	DeletePost(ctx context.Context, id string) error
	DeletePostsByUser(ctx context.Context, userID string) error
}

type StoryRepository interface {
	CreateStory(ctx context.Context, story *model.Story) error
	GetStoryByID(ctx context.Context, id string) (*model.Story, error)
	// ListStories returns stories newest first; an empty userID lists all.
	ListStories(ctx context.Context, userID string) ([]model.Story, error)
	GetStoriesByIDs(ctx context.Context, ids []string) ([]model.Story, error)
	// UpdateStory writes title and text.
	UpdateStory(ctx context.Context, story *model.Story) error
	PushStoryComment(ctx context.Context, storyID, commentID string) error
	PullStoryComment(ctx context.Context, storyID, commentID string) error
	DeleteStory(ctx context.Context, id string) error
	DeleteStoriesByUser(ctx context.Context, userID string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	// ListCommentsByParent returns the comments of a post or story, newest first.
	ListCommentsByParent(ctx context.Context, parent model.ParentRef) ([]model.Comment, error)
	ListCommentsByUser(ctx context.Context, userID string) ([]model.Comment, error)
	// UpdateComment writes the text.
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByParent(ctx context.Context, parent model.ParentRef) error
	DeleteCommentsByUser(ctx context.Context, userID string) error
}

// ReactionRepository covers reactions across every content collection.
type ReactionRepository interface {
	// WithdrawReactions removes userID from the likes and dislikes of every
	// post, story and comment.
	WithdrawReactions(ctx context.Context, userID string) error
	// ToggleReaction applies one like or dislike by userID to the post,
	// story or comment as a single atomic change, following
	// model.Reactions.Toggle. It returns the resulting state and reactions.
	ToggleReaction(ctx context.Context, kind model.ContentKind, id, userID string, reaction model.ReactionKind) (model.ReactionState, model.Reactions, error)
}

// Store is the full storage surface plus its transaction boundary.
type Store interface {
	UserRepository
	ProfileRepository
	PostRepository
	StoryRepository
	CommentRepository
	ReactionRepository

	// RunInTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Backends without transactions run fn directly against themselves.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}
