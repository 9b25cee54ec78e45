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
)

func (s *Store) CreateProfile(ctx context.Context, profile *model.Profile) error {
	profile.ID = xid.New().String()
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	if profile.Posts == nil {
		profile.Posts = []string{}
	}
	if profile.Stories == nil {
		profile.Stories = []string{}
	}

	if _, err := s.profiles.InsertOne(ctx, profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("Profile already exists")
		}
		return fmt.Errorf("mongodb: creating profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return findOne[model.Profile](ctx, s.profiles, "Profile", id, bson.M{"_id": id})
}

func (s *Store) GetProfileByUser(ctx context.Context, userID string) (*model.Profile, error) {
	return findOne[model.Profile](ctx, s.profiles, "Profile", userID, bson.M{"user": userID})
}

func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	return findAll[model.Profile](ctx, s.profiles, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// UpdateProfile sets bio and skills and reloads the stored document into profile.
func (s *Store) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	skills := profile.Skills
	if skills == nil {
		skills = []string{}
	}
	update := bson.M{"$set": bson.M{"bio": profile.Bio, "skills": skills}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err := s.profiles.FindOneAndUpdate(ctx, bson.M{"user": profile.UserID}, update, opts).Decode(profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("Profile", profile.UserID)
		}
		return fmt.Errorf("mongodb: updating profile of user %s: %w", profile.UserID, err)
	}
	return nil
}

func (s *Store) PushProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error {
	return updateOne(ctx, s.profiles, "Profile", userID, bson.M{"user": userID}, pushFront(refField(kind), contentID))
}

func (s *Store) PullProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error {
	return ignoreNotFound(updateOne(ctx, s.profiles, "Profile", userID, bson.M{"user": userID}, pull(refField(kind), contentID)))
}

func (s *Store) DeleteProfileByUser(ctx context.Context, userID string) error {
	return deleteMany(ctx, s.profiles, bson.M{"user": userID})
}

func refField(kind model.ContentKind) string {
	if kind == model.KindStory {
		return "stories"
	}
	return "posts"
}
