package mongodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

const msgUserExists = "User already exists"

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Date = now()

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(msgUserExists)
		}
		return fmt.Errorf("mongodb: creating user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.users, "User", id, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.users, "User", email, bson.M{"email": email})
}

func (s *Store) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return findOne[model.User](ctx, s.users, "User", strconv.FormatInt(githubID, 10), bson.M{"githubId": githubID})
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(msgUserExists)
		}
		return fmt.Errorf("mongodb: updating user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("User", user.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteOne(ctx, s.users, "User", id)
}

// ListAuthors loads only the fields of the Author projection.
func (s *Store) ListAuthors(ctx context.Context, ids []string) (map[string]model.Author, error) {
	authors := make(map[string]model.Author, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "avatar": 1})
	found, err := findAll[model.Author](ctx, s.users, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	for _, a := range found {
		authors[a.ID] = a
	}
	return authors, nil
}
