// Package mongodb implements repository.Store on MongoDB.
//
// Every entity lives in its own collection, keyed by an xid string `_id`.
// Reference lists (profile posts/stories, post/story comments) and reactions
// are arrays inside the documents and are changed with atomic update
// operators, so concurrent pushes never lose each other's writes.
//
// TRANSACTIONS:
// Multi-document transactions need a replica set. With Transactions enabled
// RunInTx runs its callback inside session.WithTransaction; otherwise the
// callback runs directly and a failure part-way leaves earlier writes in
// place (the cascade layer reports which steps failed).
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Collection names.
const (
	usersCollection    = "users"
	profilesCollection = "profiles"
	postsCollection    = "posts"
	storiesCollection  = "stories"
	commentsCollection = "comments"
)

// Options configures Connect.
type Options struct {
	URI          string
	Database     string
	Transactions bool
	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration
}

// Store is the MongoDB-backed repository.Store.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool

	users    *mongo.Collection
	profiles *mongo.Collection
	posts    *mongo.Collection
	stories  *mongo.Collection
	comments *mongo.Collection
}

// Connect dials the server, verifies it with a ping and ensures indexes.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	s := newStore(client, opts.Database, opts.Transactions)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func newStore(client *mongo.Client, database string, transactions bool) *Store {
	db := client.Database(database)
	return &Store{
		client:       client,
		db:           db,
		transactions: transactions,
		users:        db.Collection(usersCollection),
		profiles:     db.Collection(profilesCollection),
		posts:        db.Collection(postsCollection),
		stories:      db.Collection(storiesCollection),
		comments:     db.Collection(commentsCollection),
	}
}

// EnsureIndexes creates the unique and lookup indexes. Creating an index that
// already exists with the same definition is a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "githubId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"githubId": bson.M{"$exists": true}}),
			},
		},
		s.profiles: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.posts: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "data.collectionType", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "likes", Value: 1}}},
			{Keys: bson.D{{Key: "dislikes", Value: 1}}},
		},
		s.stories: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}},
		},
		s.comments: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "story", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb: creating indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// RunInTx runs fn in a multi-document transaction when transactions are
// enabled. The session travels in ctx, so fn receives the same Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongodb: starting session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, s)
	})
	return err
}

// =========================================================================
// HELPERS
// =========================================================================

// now returns the current time at the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// findOne decodes exactly one document; no match becomes apperror.NotFound.
func findOne[T any](ctx context.Context, coll *mongo.Collection, resource, key string, filter any) (*T, error) {
	var v T
	if err := coll.FindOne(ctx, filter).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("mongodb: finding %s %s: %w", resource, key, err)
	}
	return &v, nil
}

// findAll decodes every match into a non-nil slice.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongodb: querying %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongodb: decoding %s: %w", coll.Name(), err)
	}
	return out, nil
}

// updateOne applies update to the document matching filter; no match
// becomes apperror.NotFound.
func updateOne(ctx context.Context, coll *mongo.Collection, resource, key string, filter, update any) error {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb: updating %s %s: %w", resource, key, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound(resource, key)
	}
	return nil
}

// findAndUpdate applies update by id and decodes the updated document into out.
func findAndUpdate[T any](ctx context.Context, coll *mongo.Collection, resource, id string, update any, out *T) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound(resource, id)
		}
		return fmt.Errorf("mongodb: updating %s %s: %w", resource, id, err)
	}
	return nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, resource, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb: deleting %s %s: %w", resource, id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, filter any) error {
	if _, err := coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongodb: deleting from %s: %w", coll.Name(), err)
	}
	return nil
}

// newestFirst sorts by date, then by the time-ordered id.
func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
}

// pushFront is an update pipeline that moves id to the head of an array
// field, dropping an older occurrence. A missing field counts as empty.
func pushFront(field, id string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			field: bson.M{"$concatArrays": bson.A{
				bson.A{id},
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}},
					"cond":  bson.M{"$ne": bson.A{"$$this", id}},
				}},
			}},
		}}},
	}
}

func pull(field, id string) bson.M {
	return bson.M{"$pull": bson.M{field: id}}
}

func ignoreNotFound(err error) error {
	if apperror.IsNotFound(err) {
		return nil
	}
	return err
}
