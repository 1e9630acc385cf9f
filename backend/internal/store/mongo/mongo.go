// Package mongo implements store.Store on MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	"github.com/eranmadhuka/thinkflow/backend/pkg/logger"
)

const (
	colUsers         = "users"
	colPosts         = "posts"
	colComments      = "comments"
	colReplies       = "replies"
	colLikes         = "likes"
	colCommentLikes  = "comment_likes"
	colNotifications = "notifications"
)

// Store handles all MongoDB operations
type Store struct {
	client        *mongo.Client
	db            *mongo.Database
	users         *mongo.Collection
	posts         *mongo.Collection
	comments      *mongo.Collection
	replies       *mongo.Collection
	likes         map[domain.TargetKind]*mongo.Collection
	notifications *mongo.Collection
	transactions  bool
	logger        *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and ensures indexes.
// With transactions enabled the follow graph is updated inside a multi-document
// transaction, which requires a replica set.
func Connect(ctx context.Context, uri, database string, transactions bool) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewStore(client, database, transactions)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing client
func NewStore(client *mongo.Client, database string, transactions bool) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		db:       db,
		users:    db.Collection(colUsers),
		posts:    db.Collection(colPosts),
		comments: db.Collection(colComments),
		replies:  db.Collection(colReplies),
		likes: map[domain.TargetKind]*mongo.Collection{
			domain.TargetPost:    db.Collection(colLikes),
			domain.TargetComment: db.Collection(colCommentLikes),
		},
		notifications: db.Collection(colNotifications),
		transactions:  transactions,
		logger:        logger.Get().Named("mongo"),
	}
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates lookup indexes and the unique (target, user) like constraint
func (s *Store) EnsureIndexes(ctx context.Context) error {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: asc("email")},
			{Keys: asc("identities.provider", "identities.provider_id")},
		},
		s.posts: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.comments:      {{Keys: asc("post_id", "created_at")}},
		s.replies:       {{Keys: asc("comment_id", "created_at")}},
		s.notifications: {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}},
	}
	for _, coll := range s.likes {
		indexes[coll] = []mongo.IndexModel{
			{Keys: asc("target_id", "user_id"), Options: options.Index().SetUnique(true)},
		}
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	s.logger.Debug("Indexes ensured", zap.String("database", s.db.Name()))
	return nil
}

// inTransaction runs fn inside a transaction when enabled, otherwise directly
func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// ============================================================================
// Helper Functions
// ============================================================================

func notFound(err error) error {
	if err == mongo.ErrNoDocuments {
		return store.ErrNotFound
	}
	return err
}

func newestFirst(w domain.Window) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return paginate(opts, w)
}

func oldestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

func paginate(opts *options.FindOptions, w domain.Window) *options.FindOptions {
	if w.Size > 0 {
		opts.SetSkip(int64(w.Offset())).SetLimit(int64(w.Size))
	}
	return opts
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func findAll[D any, T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions, conv func(D) T) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, conv(d))
	}
	return out, nil
}
