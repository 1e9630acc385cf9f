package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

const defaultCompensationTimeout = 5 * time.Second

// ============================================================================
// Follow Graph
// ============================================================================
//
// Both sides live on the user documents. With transactions enabled the pair of
// updates commits atomically; without them a failed second write is undone.

// AddFollow adds followeeID to the follower's following set and followerID to the followee's followers set
func (s *Store) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.changeFollow(ctx, followerID, followeeID, "$addToSet", "$pull")
}

// RemoveFollow removes the edge from both sides
func (s *Store) RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.changeFollow(ctx, followerID, followeeID, "$pull", "$addToSet")
}

func (s *Store) changeFollow(ctx context.Context, followerID, followeeID, op, undo string) (bool, error) {
	var changed bool
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		changed = false

		n, err := s.users.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": []string{followerID, followeeID}}})
		if err != nil {
			return fmt.Errorf("check users: %w", err)
		}
		if n != 2 {
			return store.ErrNotFound
		}

		res, err := s.users.UpdateOne(ctx, bson.M{"_id": followerID}, bson.M{op: bson.M{"following": followeeID}})
		if err != nil {
			return fmt.Errorf("%s following: %w", op, err)
		}
		changed = res.ModifiedCount == 1

		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": followeeID}, bson.M{op: bson.M{"followers": followerID}}); err != nil {
			if changed && !s.transactions {
				s.compensate(followerID, followeeID, undo)
			}
			return fmt.Errorf("%s followers: %w", op, err)
		}
		return nil
	})
	return changed, err
}

// compensate reverts the following-side write after the followers-side write failed
func (s *Store) compensate(followerID, followeeID, undo string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCompensationTimeout)
	defer cancel()

	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": followerID}, bson.M{undo: bson.M{"following": followeeID}}); err != nil {
		s.logger.Error("Failed to compensate follow edge, graph is asymmetric",
			zap.String("follower_id", followerID),
			zap.String("followee_id", followeeID),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("Compensated half-applied follow edge",
		zap.String("follower_id", followerID),
		zap.String("followee_id", followeeID),
	)
}

func (s *Store) Followers(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Followers, nil
}

func (s *Store) Following(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Following, nil
}
