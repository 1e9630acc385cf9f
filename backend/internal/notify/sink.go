// Package notify persists user notifications and pushes them to live channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Pusher delivers a stored notification to the user's live channel.
// A user with no open channel is not an error.
type Pusher interface {
	Push(ctx context.Context, n domain.Notification) error
}

// Event describes something that happened to TargetUserID
type Event struct {
	Kind         domain.NotificationType
	ActorName    string
	TargetUserID string
	// Subject is what was liked ("post" or "comment"); empty means post
	Subject string
	// Text is the comment body for COMMENT events
	Text string
}

// Message renders the fixed template for the event kind
func Message(e Event) string {
	switch e.Kind {
	case domain.NotificationFollow:
		return fmt.Sprintf("%s started following you.", e.ActorName)
	case domain.NotificationLike:
		subject := e.Subject
		if subject == "" {
			subject = string(domain.TargetPost)
		}
		return fmt.Sprintf("%s liked your %s.", e.ActorName, subject)
	case domain.NotificationComment:
		return fmt.Sprintf("%s commented on your post: %s", e.ActorName, e.Text)
	default:
		return e.ActorName
	}
}

// Sink is the notification entry point used by the other services
type Sink struct {
	store  store.NotificationStore
	pusher Pusher
	logger *zap.Logger
}

// NewSink creates a sink; pusher may be nil to disable live delivery
func NewSink(st store.NotificationStore, pusher Pusher, log *zap.Logger) *Sink {
	return &Sink{store: st, pusher: pusher, logger: log.Named("notify")}
}

// Notify persists the notification unread, then pushes it best-effort
func (s *Sink) Notify(ctx context.Context, e Event) (*domain.Notification, error) {
	if e.TargetUserID == "" {
		return nil, apperrors.NewInvalid("target user", "empty")
	}

	n := domain.NewNotification(e.TargetUserID, e.Kind, Message(e))
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, apperrors.NewStoreFailed("create notification", err)
	}

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, *n); err != nil {
			s.logger.Warn("Live push failed, notification stays stored",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Notification sent",
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("type", string(n.Type)),
	)
	return n, nil
}

// Get loads a notification; callers compare UserID with the caller before acting on it
func (s *Sink) Get(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("notification", id)
		}
		return nil, apperrors.NewStoreFailed("get notification", err)
	}
	return n, nil
}

// List returns the user's notifications, newest first
func (s *Sink) List(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	out, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list notifications", err)
	}
	return out, nil
}

// UnreadCount returns how many notifications the user has not read
func (s *Sink) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.NewStoreFailed("count unread notifications", err)
	}
	return n, nil
}

// MarkRead sets read=true; marking an already-read notification succeeds
func (s *Sink) MarkRead(ctx context.Context, id string) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("notification", id)
		}
		return apperrors.NewStoreFailed("mark notification read", err)
	}
	return nil
}
