// Package engagement implements like/unlike for posts and comments.
package engagement

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Notifier receives LIKE events
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) (*domain.Notification, error)
}

// Service flips like records. Toggles by one actor on one target are
// serialized by the locker; the store's unique index backs it up.
type Service struct {
	users    store.UserStore
	posts    store.PostStore
	comments store.CommentStore
	likes    store.LikeStore
	locker   lock.Locker
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the like service
func NewService(users store.UserStore, posts store.PostStore, comments store.CommentStore, likes store.LikeStore,
	locker lock.Locker, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		posts:    posts,
		comments: comments,
		likes:    likes,
		locker:   locker,
		notifier: notifier,
		logger:   log.Named("engagement"),
	}
}

// Toggle removes the actor's like if present, otherwise creates it and
// notifies the target's owner. The returned count is re-read from the store.
func (s *Service) Toggle(ctx context.Context, actorID string, target domain.Target) (domain.LikeState, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return domain.LikeState{}, lookupErr("user", actorID, err)
	}
	ownerID, err := s.owner(ctx, target)
	if err != nil {
		return domain.LikeState{}, err
	}

	release, err := s.locker.Lock(ctx, target.Key(actorID))
	if err != nil {
		return domain.LikeState{}, lock.AcquireError(ctx, "acquire like lock", err)
	}
	defer release()

	var liked, created bool
	_, err = s.likes.FindLike(ctx, target, actorID)
	switch {
	case err == nil:
		if _, err := s.likes.DeleteLike(ctx, target, actorID); err != nil {
			return domain.LikeState{}, apperrors.NewStoreFailed("delete like", err)
		}
	case errors.Is(err, store.ErrNotFound):
		liked = true
		err := s.likes.InsertLike(ctx, domain.NewLike(target, actorID))
		switch {
		case err == nil:
			created = true
		case errors.Is(err, store.ErrDuplicate):
			// another instance inserted first without holding our lock
		default:
			return domain.LikeState{}, apperrors.NewStoreFailed("insert like", err)
		}
	default:
		return domain.LikeState{}, apperrors.NewStoreFailed("find like", err)
	}

	count, err := s.likes.CountLikes(ctx, target)
	if err != nil {
		return domain.LikeState{}, apperrors.NewStoreFailed("count likes", err)
	}

	s.logger.Debug("Like toggled",
		zap.String("actor_id", actorID),
		zap.String("kind", string(target.Kind)),
		zap.String("target_id", target.ID),
		zap.Bool("liked", liked),
		zap.Int64("count", count),
	)

	if created && ownerID != actorID {
		if _, err := s.notifier.Notify(ctx, notify.Event{
			Kind:         domain.NotificationLike,
			ActorName:    actor.Name,
			TargetUserID: ownerID,
			Subject:      string(target.Kind),
		}); err != nil {
			s.logger.Warn("Failed to notify like", zap.String("target_id", target.ID), zap.Error(err))
		}
	}

	return domain.LikeState{Count: count, Liked: liked}, nil
}

// HasLiked reports whether actorID currently likes the target; an anonymous actor never has
func (s *Service) HasLiked(ctx context.Context, actorID string, target domain.Target) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	if _, err := s.owner(ctx, target); err != nil {
		return false, err
	}
	_, err := s.likes.FindLike(ctx, target, actorID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, apperrors.NewStoreFailed("find like", err)
	}
}

// Count returns the number of likes on the target
func (s *Service) Count(ctx context.Context, target domain.Target) (int64, error) {
	if _, err := s.owner(ctx, target); err != nil {
		return 0, err
	}
	n, err := s.likes.CountLikes(ctx, target)
	if err != nil {
		return 0, apperrors.NewStoreFailed("count likes", err)
	}
	return n, nil
}

// State returns count and the actor's liked flag together
func (s *Service) State(ctx context.Context, actorID string, target domain.Target) (domain.LikeState, error) {
	liked, err := s.HasLiked(ctx, actorID, target)
	if err != nil {
		return domain.LikeState{}, err
	}
	count, err := s.Count(ctx, target)
	if err != nil {
		return domain.LikeState{}, err
	}
	return domain.LikeState{Count: count, Liked: liked}, nil
}

// Likes lists the like records on the target, oldest first
func (s *Service) Likes(ctx context.Context, target domain.Target) ([]domain.Like, error) {
	if _, err := s.owner(ctx, target); err != nil {
		return nil, err
	}
	out, err := s.likes.ListLikes(ctx, target)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list likes", err)
	}
	return out, nil
}

// owner resolves the user who receives notifications for the target
func (s *Service) owner(ctx context.Context, target domain.Target) (string, error) {
	switch target.Kind {
	case domain.TargetPost:
		p, err := s.posts.GetPost(ctx, target.ID)
		if err != nil {
			return "", lookupErr("post", target.ID, err)
		}
		return p.UserID, nil
	case domain.TargetComment:
		c, err := s.comments.GetComment(ctx, target.ID)
		if err != nil {
			return "", lookupErr("comment", target.ID, err)
		}
		return c.UserID, nil
	default:
		return "", apperrors.NewInvalid("target kind", string(target.Kind))
	}
}

func lookupErr(resource, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound(resource, id)
	}
	return apperrors.NewStoreFailed("get "+resource, err)
}
