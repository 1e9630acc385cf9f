package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

// ============================================================================
// Like Operations
// ============================================================================

func (s *Store) likeCollection(kind domain.TargetKind) (*mongo.Collection, error) {
	coll, ok := s.likes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown like target kind %q", kind)
	}
	return coll, nil
}

// InsertLike relies on the unique (target_id, user_id) index
func (s *Store) InsertLike(ctx context.Context, l *domain.Like) error {
	coll, err := s.likeCollection(l.Kind)
	if err != nil {
		return err
	}
	doc := likeDoc{ID: l.ID, TargetID: l.TargetID, UserID: l.UserID, CreatedAt: l.CreatedAt}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (s *Store) DeleteLike(ctx context.Context, target domain.Target, userID string) (bool, error) {
	coll, err := s.likeCollection(target.Kind)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"target_id": target.ID, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (s *Store) FindLike(ctx context.Context, target domain.Target, userID string) (*domain.Like, error) {
	coll, err := s.likeCollection(target.Kind)
	if err != nil {
		return nil, err
	}
	var doc likeDoc
	if err := coll.FindOne(ctx, bson.M{"target_id": target.ID, "user_id": userID}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	l := doc.toDomain(target.Kind)
	return &l, nil
}

func (s *Store) CountLikes(ctx context.Context, target domain.Target) (int64, error) {
	coll, err := s.likeCollection(target.Kind)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.M{"target_id": target.ID})
}

func (s *Store) ListLikes(ctx context.Context, target domain.Target) ([]domain.Like, error) {
	coll, err := s.likeCollection(target.Kind)
	if err != nil {
		return nil, err
	}
	return findAll(ctx, coll, bson.M{"target_id": target.ID}, oldestFirst(), func(d likeDoc) domain.Like {
		return d.toDomain(target.Kind)
	})
}

func (s *Store) DeleteLikesByTargets(ctx context.Context, kind domain.TargetKind, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	coll, err := s.likeCollection(kind)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, bson.M{"target_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete likes: %w", err)
	}
	return res.DeletedCount, nil
}

// ============================================================================
// Notification Operations
// ============================================================================

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if _, err := s.notifications.InsertOne(ctx, notificationDoc(*n)); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	var doc notificationDoc
	if err := s.notifications.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	n := doc.toDomain()
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	return findAll(ctx, s.notifications, filter, newestFirst(domain.Window{}), notificationDoc.toDomain)
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// MarkRead is idempotent; an already-read notification still matches
func (s *Store) MarkRead(ctx context.Context, id string) error {
	res, err := s.notifications.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
