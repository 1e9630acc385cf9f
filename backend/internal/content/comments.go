package content

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// AddComment attaches a comment to postID and notifies the post owner
func (s *Service) AddComment(ctx context.Context, actorID, postID, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalid("content", "comment is empty")
	}
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	c := domain.NewComment(postID, actorID, text)
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, apperrors.NewStoreFailed("create comment", err)
	}

	if post.UserID != actorID {
		if _, err := s.notifier.Notify(ctx, notify.Event{
			Kind:         domain.NotificationComment,
			ActorName:    actor.Name,
			TargetUserID: post.UserID,
			Text:         text,
		}); err != nil {
			s.logger.Warn("Failed to notify comment", zap.String("post_id", postID), zap.Error(err))
		}
	}
	return c, nil
}

// UpdateComment replaces the comment text. Only the owner may update.
func (s *Service) UpdateComment(ctx context.Context, actorID, commentID, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalid("content", "comment is empty")
	}
	c, err := s.ownedComment(ctx, actorID, commentID)
	if err != nil {
		return nil, err
	}

	c.Content = text
	c.UpdatedAt = time.Now().UTC()
	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return nil, lookupErr("comment", commentID, err)
	}
	return c, nil
}

// DeleteComment removes the comment with its replies and likes
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID string) error {
	if _, err := s.ownedComment(ctx, actorID, commentID); err != nil {
		return err
	}

	ids := []string{commentID}
	if _, err := s.comments.DeleteRepliesByComments(ctx, ids); err != nil {
		return apperrors.NewStoreFailed("delete replies", err)
	}
	if _, err := s.likes.DeleteLikesByTargets(ctx, domain.TargetComment, ids); err != nil {
		return apperrors.NewStoreFailed("delete comment likes", err)
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return lookupErr("comment", commentID, err)
	}

	s.logger.Info("Comment deleted", zap.String("comment_id", commentID), zap.String("user_id", actorID))
	return nil
}

// GetComment fetches a comment by id
func (s *Service) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	c, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		return nil, lookupErr("comment", commentID, err)
	}
	return c, nil
}

// Comments lists the comments of a post in creation order
func (s *Service) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	out, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list comments", err)
	}
	return out, nil
}

// CommentCount returns the number of comments on a post
func (s *Service) CommentCount(ctx context.Context, postID string) (int64, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return 0, err
	}
	n, err := s.comments.CountComments(ctx, postID)
	if err != nil {
		return 0, apperrors.NewStoreFailed("count comments", err)
	}
	return n, nil
}

// AddReply attaches a reply to commentID
func (s *Service) AddReply(ctx context.Context, actorID, commentID, text string) (*domain.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalid("content", "reply is empty")
	}
	if _, err := s.actor(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.GetComment(ctx, commentID); err != nil {
		return nil, err
	}

	r := domain.NewReply(commentID, actorID, text)
	if err := s.comments.CreateReply(ctx, r); err != nil {
		return nil, apperrors.NewStoreFailed("create reply", err)
	}
	return r, nil
}

// Replies lists the replies of a comment in creation order
func (s *Service) Replies(ctx context.Context, commentID string) ([]domain.Reply, error) {
	if _, err := s.GetComment(ctx, commentID); err != nil {
		return nil, err
	}
	out, err := s.comments.ListReplies(ctx, commentID)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list replies", err)
	}
	return out, nil
}

func (s *Service) ownedComment(ctx context.Context, actorID, commentID string) (*domain.Comment, error) {
	c, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actorID {
		return nil, apperrors.NewForbidden(actorID, "comment "+commentID)
	}
	return c, nil
}
