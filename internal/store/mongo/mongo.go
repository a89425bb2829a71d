// Package mongo implements the store.Store interface backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

// collection is the subset of *mongo.Collection the store uses.
type collection interface {
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error)
}

// MongoStore implements store.Store backed by a MongoDB database.
type MongoStore struct {
	client      *mongo.Client
	comments    collection
	submissions collection
}

var _ store.Store = (*MongoStore)(nil)

// New connects to the MongoDB deployment at uri, verifies the connection
// and ensures the query indexes exist in the named database.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	comments := db.Collection("comments")
	submissions := db.Collection("submissions")

	for _, c := range []*mongo.Collection{comments, submissions} {
		if _, err := c.Indexes().CreateMany(ctx, recordIndexes()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("create indexes on %s: %w", c.Name(), err)
		}
	}

	return &MongoStore{client: client, comments: comments, submissions: submissions}, nil
}

func recordIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "subreddit", Value: 1}, {Key: "created_utc", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	}
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// insertOnce writes doc under id unless a document with that id already
// exists, and reports whether it was written.
func insertOnce(ctx context.Context, c collection, id string, doc any) (int64, error) {
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return 0, err
	}
	return res.UpsertedCount, nil
}

func (s *MongoStore) InsertComment(ctx context.Context, c *model.Comment) (int64, error) {
	doc := toCommentDocument(c)
	doc.ID = ""
	return insertOnce(ctx, s.comments, c.ID, doc)
}

func (s *MongoStore) InsertSubmission(ctx context.Context, sub *model.Submission) (int64, error) {
	doc := toSubmissionDocument(sub)
	doc.ID = ""
	return insertOnce(ctx, s.submissions, sub.ID, doc)
}

func (s *MongoStore) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var doc commentDocument
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var doc submissionDocument
	if err := s.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CountRecords(ctx context.Context, kind model.RecordKind) (int64, error) {
	var c collection
	switch kind {
	case model.KindComment:
		c = s.comments
	case model.KindSubmission:
		c = s.submissions
	default:
		return 0, fmt.Errorf("unknown record kind %q", kind)
	}
	n, err := c.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s records: %w", kind, err)
	}
	return n, nil
}

// RunInTransaction calls fn with the store itself. Batches are not atomic
// here; replaying one is harmless because inserts never overwrite.
func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}
