// Package content owns posts, comments and replies, including cascade
// deletion and the per-user saved-post set.
package content

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Notifier receives COMMENT events
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) (*domain.Notification, error)
}

// Service implements the post/comment/reply lifecycle
type Service struct {
	users    store.UserStore
	posts    store.PostStore
	comments store.CommentStore
	likes    store.LikeStore
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the content service
func NewService(users store.UserStore, posts store.PostStore, comments store.CommentStore, likes store.LikeStore,
	notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		posts:    posts,
		comments: comments,
		likes:    likes,
		notifier: notifier,
		logger:   log.Named("content"),
	}
}

// ============================================================================
// Posts
// ============================================================================

// CreatePost stores a new post owned by actorID
func (s *Service) CreatePost(ctx context.Context, actorID string, in domain.PostInput) (*domain.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	if _, err := s.actor(ctx, actorID); err != nil {
		return nil, err
	}

	p := domain.NewPost(actorID, in)
	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, apperrors.NewStoreFailed("create post", err)
	}

	s.logger.Info("Post created", zap.String("post_id", p.ID), zap.String("user_id", actorID))
	return p, nil
}

// UpdatePost overwrites title, content, media and tags. Only the owner may update.
func (s *Service) UpdatePost(ctx context.Context, actorID, postID string, in domain.PostInput) (*domain.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	p, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	p.Update(in)
	if err := s.posts.UpdatePost(ctx, p); err != nil {
		return nil, lookupErr("post", postID, err)
	}
	return p, nil
}

// DeletePost removes the post and everything attached to it. Children are
// removed first so a failed cascade leaves the post in place for a retry.
func (s *Service) DeletePost(ctx context.Context, actorID, postID string) error {
	if _, err := s.ownedPost(ctx, actorID, postID); err != nil {
		return err
	}

	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return apperrors.NewStoreFailed("list comments", err)
	}
	commentIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
	}

	if len(commentIDs) > 0 {
		if _, err := s.comments.DeleteRepliesByComments(ctx, commentIDs); err != nil {
			return apperrors.NewStoreFailed("delete replies", err)
		}
		if _, err := s.likes.DeleteLikesByTargets(ctx, domain.TargetComment, commentIDs); err != nil {
			return apperrors.NewStoreFailed("delete comment likes", err)
		}
	}
	if _, err := s.comments.DeleteCommentsByPost(ctx, postID); err != nil {
		return apperrors.NewStoreFailed("delete comments", err)
	}
	likes, err := s.likes.DeleteLikesByTargets(ctx, domain.TargetPost, []string{postID})
	if err != nil {
		return apperrors.NewStoreFailed("delete post likes", err)
	}
	if err := s.users.PullSavedPost(ctx, postID); err != nil {
		return apperrors.NewStoreFailed("pull saved post", err)
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return lookupErr("post", postID, err)
	}

	s.logger.Info("Post deleted",
		zap.String("post_id", postID),
		zap.String("user_id", actorID),
		zap.Int("comments", len(commentIDs)),
		zap.Int64("likes", likes),
	)
	return nil
}

// GetPost fetches a post by id
func (s *Service) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, lookupErr("post", postID, err)
	}
	return p, nil
}

// PostsByAuthor lists userID's posts, newest first
func (s *Service) PostsByAuthor(ctx context.Context, userID string, w domain.Window) ([]domain.Post, error) {
	if _, err := s.actor(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByAuthors(ctx, []string{userID}, w)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list posts by author", err)
	}
	return posts, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Service) actor(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthenticated("no user in request", nil)
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupErr("user", userID, err)
	}
	return u, nil
}

func (s *Service) ownedPost(ctx context.Context, actorID, postID string) (*domain.Post, error) {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actorID {
		return nil, apperrors.NewForbidden(actorID, "post "+postID)
	}
	return p, nil
}

func validatePost(in domain.PostInput) error {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		return apperrors.NewInvalid("content", "title or content is required")
	}
	return nil
}

func lookupErr(resource, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound(resource, id)
	}
	return apperrors.NewStoreFailed("get "+resource, err)
}
