package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

// =========================================================================
// POSTS
// =========================================================================

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Date = now()
	post.Reactions = post.Reactions.Normalized()
	if post.Comments == nil {
		post.Comments = []string{}
	}
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("mongodb: creating post: %w", err)
	}
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	return findOne[model.Post](ctx, s.posts, "Post", id, bson.M{"_id": id})
}

func (s *Store) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["data.collectionType"] = filter.Category
	}
	if filter.UserID != "" {
		query["user"] = filter.UserID
	}
	return findAll[model.Post](ctx, s.posts, query, newestFirst())
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	return findAll[model.Post](ctx, s.posts, bson.M{"_id": bson.M{"$in": ids}}, newestFirst())
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	update := bson.M{"$set": bson.M{"title": post.Title, "data": post.Data}}
	return findAndUpdate(ctx, s.posts, "Post", post.ID, update, post)
}

func (s *Store) PushPostComment(ctx context.Context, postID, commentID string) error {
	return updateOne(ctx, s.posts, "Post", postID, bson.M{"_id": postID}, pushFront("comments", commentID))
}

func (s *Store) PullPostComment(ctx context.Context, postID, commentID string) error {
	return ignoreNotFound(updateOne(ctx, s.posts, "Post", postID, bson.M{"_id": postID}, pull("comments", commentID)))
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return deleteOne(ctx, s.posts, "Post", id)
}

func (s *Store) DeletePostsByUser(ctx context.Context, userID string) error {
	return deleteMany(ctx, s.posts, bson.M{"user": userID})
}

// =========================================================================
// STORIES
// =========================================================================

func (s *Store) CreateStory(ctx context.Context, story *model.Story) error {
	story.ID = xid.New().String()
	story.Date = now()
	story.Reactions = story.Reactions.Normalized()
	if story.Comments == nil {
		story.Comments = []string{}
	}
	if _, err := s.stories.InsertOne(ctx, story); err != nil {
		return fmt.Errorf("mongodb: creating story: %w", err)
	}
	return nil
}

func (s *Store) GetStoryByID(ctx context.Context, id string) (*model.Story, error) {
	return findOne[model.Story](ctx, s.stories, "Story", id, bson.M{"_id": id})
}

func (s *Store) ListStories(ctx context.Context, userID string) ([]model.Story, error) {
	query := bson.M{}
	if userID != "" {
		query["user"] = userID
	}
	return findAll[model.Story](ctx, s.stories, query, newestFirst())
}

func (s *Store) GetStoriesByIDs(ctx context.Context, ids []string) ([]model.Story, error) {
	if len(ids) == 0 {
		return []model.Story{}, nil
	}
	return findAll[model.Story](ctx, s.stories, bson.M{"_id": bson.M{"$in": ids}}, newestFirst())
}

func (s *Store) UpdateStory(ctx context.Context, story *model.Story) error {
	update := bson.M{"$set": bson.M{"title": story.Title, "text": story.Text}}
	return findAndUpdate(ctx, s.stories, "Story", story.ID, update, story)
}

func (s *Store) PushStoryComment(ctx context.Context, storyID, commentID string) error {
	return updateOne(ctx, s.stories, "Story", storyID, bson.M{"_id": storyID}, pushFront("comments", commentID))
}

func (s *Store) PullStoryComment(ctx context.Context, storyID, commentID string) error {
	return ignoreNotFound(updateOne(ctx, s.stories, "Story", storyID, bson.M{"_id": storyID}, pull("comments", commentID)))
}

func (s *Store) DeleteStory(ctx context.Context, id string) error {
	return deleteOne(ctx, s.stories, "Story", id)
}

func (s *Store) DeleteStoriesByUser(ctx context.Context, userID string) error {
	return deleteMany(ctx, s.stories, bson.M{"user": userID})
}

// =========================================================================
// COMMENTS
// =========================================================================

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.Date = now()
	comment.Reactions = comment.Reactions.Normalized()
	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("mongodb: creating comment: %w", err)
	}
	return nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	return findOne[model.Comment](ctx, s.comments, "Comment", id, bson.M{"_id": id})
}

func (s *Store) ListCommentsByParent(ctx context.Context, parent model.ParentRef) ([]model.Comment, error) {
	return findAll[model.Comment](ctx, s.comments, parentFilter(parent), newestFirst())
}

func (s *Store) ListCommentsByUser(ctx context.Context, userID string) ([]model.Comment, error) {
	return findAll[model.Comment](ctx, s.comments, bson.M{"user": userID}, newestFirst())
}

func (s *Store) UpdateComment(ctx context.Context, comment *model.Comment) error {
	update := bson.M{"$set": bson.M{"text": comment.Text}}
	return findAndUpdate(ctx, s.comments, "Comment", comment.ID, update, comment)
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return deleteOne(ctx, s.comments, "Comment", id)
}

func (s *Store) DeleteCommentsByParent(ctx context.Context, parent model.ParentRef) error {
	return deleteMany(ctx, s.comments, parentFilter(parent))
}

func (s *Store) DeleteCommentsByUser(ctx context.Context, userID string) error {
	return deleteMany(ctx, s.comments, bson.M{"user": userID})
}

// =========================================================================
// REACTIONS
// =========================================================================

// WithdrawReactions pulls userID from both reaction arrays of every document
// that holds it.
func (s *Store) WithdrawReactions(ctx context.Context, userID string) error {
	filter := bson.M{"$or": bson.A{bson.M{"likes": userID}, bson.M{"dislikes": userID}}}
	update := bson.M{"$pull": bson.M{"likes": userID, "dislikes": userID}}

	for _, coll := range []*mongo.Collection{s.posts, s.stories, s.comments} {
		if _, err := coll.UpdateMany(ctx, filter, update); err != nil {
			return fmt.Errorf("mongodb: withdrawing reactions in %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// ToggleReaction runs the toggle as one pipeline update, so reactions by
// other users landing at the same time are never overwritten. The state is
// replayed from the document as it was just before the update.
func (s *Store) ToggleReaction(ctx context.Context, kind model.ContentKind, id, userID string, reaction model.ReactionKind) (model.ReactionState, model.Reactions, error) {
	coll, resource, err := s.reactable(kind)
	if err != nil {
		return model.NoReaction, model.Reactions{}, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"likes": 1, "dislikes": 1})

	var r model.Reactions
	if err := coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, toggleReaction(userID, reaction), opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.NoReaction, model.Reactions{}, apperror.NotFound(resource, id)
		}
		return model.NoReaction, model.Reactions{}, fmt.Errorf("mongodb: toggling %s on %s %s: %w", reaction, resource, id, err)
	}

	r = r.Normalized()
	state := r.Toggle(reaction, userID)
	return state, r, nil
}

func (s *Store) reactable(kind model.ContentKind) (*mongo.Collection, string, error) {
	switch kind {
	case model.KindPost:
		return s.posts, "Post", nil
	case model.KindStory:
		return s.stories, "Story", nil
	case model.KindComment:
		return s.comments, "Comment", nil
	}
	return nil, "", apperror.ValidationFailed("kind", fmt.Sprintf("cannot react to %q", kind))
}

// toggleReaction is the update pipeline form of model.Reactions.Toggle.
// Every expression of a $set stage reads the document as it was before the
// stage, so both arrays are computed from the same snapshot.
func toggleReaction(userID string, reaction model.ReactionKind) mongo.Pipeline {
	likes := bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}
	dislikes := bson.M{"$ifNull": bson.A{"$dislikes", bson.A{}}}

	without := func(list bson.M) bson.M {
		return bson.M{"$filter": bson.M{
			"input": list,
			"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
		}}
	}
	toFront := func(list bson.M) bson.M {
		return bson.M{"$concatArrays": bson.A{bson.A{userID}, without(list)}}
	}

	liked := bson.M{"$in": bson.A{userID, likes}}
	disliked := bson.M{"$and": bson.A{
		bson.M{"$not": bson.A{liked}},
		bson.M{"$in": bson.A{userID, dislikes}},
	}}

	set := bson.M{"likes": without(likes), "dislikes": without(dislikes)}
	switch reaction {
	case model.Like:
		set["likes"] = bson.M{"$cond": bson.A{liked, without(likes), toFront(likes)}}
	case model.Dislike:
		set["dislikes"] = bson.M{"$cond": bson.A{disliked, without(dislikes), toFront(dislikes)}}
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func parentFilter(parent model.ParentRef) bson.M {
	if parent.Kind == model.KindStory {
		return bson.M{"story": parent.ID}
	}
	return bson.M{"post": parent.ID}
}
