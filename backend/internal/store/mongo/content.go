package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

// ============================================================================
// Post Operations
// ============================================================================

func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	if _, err := s.posts.InsertOne(ctx, toPostDoc(p)); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, p *domain.Post) error {
	res, err := s.posts.ReplaceOne(ctx, bson.M{"_id": p.ID}, toPostDoc(p))
	if err != nil {
		return fmt.Errorf("replace post: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (s *Store) GetPosts(ctx context.Context, ids []string) ([]domain.Post, error) {
	return findAll(ctx, s.posts, bson.M{"_id": bson.M{"$in": nonNil(ids)}}, newestFirst(domain.Window{}), postDoc.toDomain)
}

func (s *Store) ListPosts(ctx context.Context, w domain.Window) ([]domain.Post, error) {
	return findAll(ctx, s.posts, bson.M{}, newestFirst(w), postDoc.toDomain)
}

func (s *Store) ListPostsByAuthors(ctx context.Context, userIDs []string, w domain.Window) ([]domain.Post, error) {
	return findAll(ctx, s.posts, bson.M{"user_id": bson.M{"$in": nonNil(userIDs)}}, newestFirst(w), postDoc.toDomain)
}

// ============================================================================
// Comment Operations
// ============================================================================

func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	if _, err := s.comments.InsertOne(ctx, commentDoc(*c)); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *Store) UpdateComment(ctx context.Context, c *domain.Comment) error {
	res, err := s.comments.ReplaceOne(ctx, bson.M{"_id": c.ID}, commentDoc(*c))
	if err != nil {
		return fmt.Errorf("replace comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var doc commentDoc
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	c := doc.toDomain()
	return &c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	return findAll(ctx, s.comments, bson.M{"post_id": postID}, oldestFirst(), commentDoc.toDomain)
}

func (s *Store) CountComments(ctx context.Context, postID string) (int64, error) {
	return s.comments.CountDocuments(ctx, bson.M{"post_id": postID})
}

func (s *Store) DeleteCommentsByPost(ctx context.Context, postID string) (int64, error) {
	res, err := s.comments.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, fmt.Errorf("delete comments of post: %w", err)
	}
	return res.DeletedCount, nil
}

// ============================================================================
// Reply Operations
// ============================================================================

func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) error {
	if _, err := s.replies.InsertOne(ctx, replyDoc(*r)); err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

func (s *Store) ListReplies(ctx context.Context, commentID string) ([]domain.Reply, error) {
	return findAll(ctx, s.replies, bson.M{"comment_id": commentID}, oldestFirst(), replyDoc.toDomain)
}

func (s *Store) DeleteRepliesByComments(ctx context.Context, commentIDs []string) (int64, error) {
	if len(commentIDs) == 0 {
		return 0, nil
	}
	res, err := s.replies.DeleteMany(ctx, bson.M{"comment_id": bson.M{"$in": commentIDs}})
	if err != nil {
		return 0, fmt.Errorf("delete replies: %w", err)
	}
	return res.DeletedCount, nil
}
