package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TargetKind names what a like points at
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Target identifies a likeable record
type Target struct {
	Kind TargetKind
	ID   string
}

func PostTarget(id string) Target    { return Target{Kind: TargetPost, ID: id} }
func CommentTarget(id string) Target { return Target{Kind: TargetComment, ID: id} }

// Key is the serialization key of an actor acting on this target
func (t Target) Key(actorID string) string {
	return fmt.Sprintf("like:%s:%s:%s", t.Kind, t.ID, actorID)
}

// Like records that a user likes a target; at most one exists per (user, target)
type Like struct {
	ID        string     `json:"id"`
	Kind      TargetKind `json:"kind"`
	TargetID  string     `json:"targetId"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
}

func NewLike(target Target, userID string) *Like {
	return &Like{
		ID:        uuid.NewString(),
		Kind:      target.Kind,
		TargetID:  target.ID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

// LikeState is returned by a toggle
type LikeState struct {
	Count int64 `json:"likeCount"`
	Liked bool  `json:"liked"`
}

// NotificationType tags a notification
type NotificationType string

const (
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
)

// Notification is delivered to a single user
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func NewNotification(userID string, kind NotificationType, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
}
