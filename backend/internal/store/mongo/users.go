package mongo

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

// ============================================================================
// User Operations
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if _, err := s.users.InsertOne(ctx, toUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	s.logger.Info("User created", zap.String("user_id", u.ID), zap.Int("identities", len(u.Identities)))
	return nil
}

// UpdateUser writes identity and profile fields; follow and saved sets are left alone
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"identities": u.Identities,
		"name":       u.Name,
		"email":      u.Email,
		"picture":    u.Picture,
		"bio":        u.Bio,
		"status":     u.Status,
		"updated_at": u.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.findOneUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	found, err := findAll(ctx, s.users, bson.M{"_id": bson.M{"$in": nonNil(ids)}}, nil, userDoc.toDomain)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) FindByIdentity(ctx context.Context, provider, providerID string) (*domain.User, error) {
	return s.findOneUser(ctx, bson.M{"identities": bson.M{"$elemMatch": bson.M{
		"provider":    provider,
		"provider_id": providerID,
	}}})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, store.ErrNotFound
	}
	return s.findOneUser(ctx, bson.M{"email": email})
}

func (s *Store) findOneUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	u := doc.toDomain()
	return &u, nil
}

func (s *Store) ListUsersExcluding(ctx context.Context, exclude []string, w domain.Window) (domain.Page[domain.User], error) {
	filter := bson.M{"_id": bson.M{"$nin": nonNil(exclude)}}

	total, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("count users: %w", err)
	}
	users, err := findAll(ctx, s.users, filter, newestFirst(w), userDoc.toDomain)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return domain.Page[domain.User]{Items: users, Page: w.Page, Size: w.Size, Total: total}, nil
}

// SearchUsers matches case-insensitive substrings of name and email
func (s *Store) SearchUsers(ctx context.Context, q store.UserQuery) ([]domain.User, error) {
	filter := bson.M{}
	if q.ExcludeID != "" {
		filter["_id"] = bson.M{"$ne": q.ExcludeID}
	}
	if q.Name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Name), Options: "i"}
	}
	if q.Email != "" {
		filter["email"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Email), Options: "i"}
	}
	return findAll(ctx, s.users, filter, newestFirst(domain.Window{}), userDoc.toDomain)
}

// ============================================================================
// Saved Posts
// ============================================================================

func (s *Store) AddSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	return s.updateSet(ctx, userID, "$addToSet", "saved_posts", postID)
}

func (s *Store) RemoveSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	return s.updateSet(ctx, userID, "$pull", "saved_posts", postID)
}

func (s *Store) PullSavedPost(ctx context.Context, postID string) error {
	_, err := s.users.UpdateMany(ctx, bson.M{"saved_posts": postID}, bson.M{"$pull": bson.M{"saved_posts": postID}})
	if err != nil {
		return fmt.Errorf("pull saved post: %w", err)
	}
	return nil
}

// updateSet applies $addToSet or $pull to one array field and reports whether it changed
func (s *Store) updateSet(ctx context.Context, userID, op, field, value string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{op: bson.M{field: value}},
	)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", op, field, err)
	}
	if res.MatchedCount == 0 {
		return false, store.ErrNotFound
	}
	return res.ModifiedCount == 1, nil
}
