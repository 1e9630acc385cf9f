// Package store declares the persistence ports used by the services.
// Implementations live in the mongo, neo4j and memory subpackages.
package store

import (
	"context"
	"errors"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup by id or key matches nothing
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert
	ErrDuplicate = errors.New("store: duplicate record")
)

// UserQuery filters a user search; empty fields are ignored
type UserQuery struct {
	Name      string
	Email     string
	ExcludeID string
}

// UserStore persists user records. UpdateUser writes identity and profile
// fields only; follow sets are owned by the GraphStore.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUsers returns the users in the order of ids, skipping unknown ids
	GetUsers(ctx context.Context, ids []string) ([]domain.User, error)
	FindByIdentity(ctx context.Context, provider, providerID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListUsersExcluding returns users whose id is not in exclude, newest first
	ListUsersExcluding(ctx context.Context, exclude []string, w domain.Window) (domain.Page[domain.User], error)
	SearchUsers(ctx context.Context, q UserQuery) ([]domain.User, error)

	AddSavedPost(ctx context.Context, userID, postID string) (bool, error)
	RemoveSavedPost(ctx context.Context, userID, postID string) (bool, error)
	// PullSavedPost removes postID from every user's saved set
	PullSavedPost(ctx context.Context, postID string) error
}

// GraphStore maintains the directed follow relation. AddFollow and
// RemoveFollow report whether the edge changed and must update both sides
// or neither.
type GraphStore interface {
	AddFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
}

// PostStore persists posts. Listings are ordered by creation time, newest first.
type PostStore interface {
	CreatePost(ctx context.Context, p *domain.Post) error
	UpdatePost(ctx context.Context, p *domain.Post) error
	DeletePost(ctx context.Context, id string) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	GetPosts(ctx context.Context, ids []string) ([]domain.Post, error)
	ListPosts(ctx context.Context, w domain.Window) ([]domain.Post, error)
	ListPostsByAuthors(ctx context.Context, userIDs []string, w domain.Window) ([]domain.Post, error)
}

// CommentStore persists comments and replies. Listings are in creation order.
type CommentStore interface {
	CreateComment(ctx context.Context, c *domain.Comment) error
	UpdateComment(ctx context.Context, c *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	CountComments(ctx context.Context, postID string) (int64, error)
	DeleteCommentsByPost(ctx context.Context, postID string) (int64, error)

	CreateReply(ctx context.Context, r *domain.Reply) error
	ListReplies(ctx context.Context, commentID string) ([]domain.Reply, error)
	DeleteRepliesByComments(ctx context.Context, commentIDs []string) (int64, error)
}

// LikeStore persists likes for every target kind. InsertLike returns
// ErrDuplicate when the (user, target) pair already exists.
type LikeStore interface {
	InsertLike(ctx context.Context, l *domain.Like) error
	DeleteLike(ctx context.Context, target domain.Target, userID string) (bool, error)
	FindLike(ctx context.Context, target domain.Target, userID string) (*domain.Like, error)
	CountLikes(ctx context.Context, target domain.Target) (int64, error)
	ListLikes(ctx context.Context, target domain.Target) ([]domain.Like, error)
	DeleteLikesByTargets(ctx context.Context, kind domain.TargetKind, ids []string) (int64, error)
}

// NotificationStore persists notifications, newest first.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
}

// Store is a complete document store
type Store interface {
	UserStore
	GraphStore
	PostStore
	CommentStore
	LikeStore
	NotificationStore
	Close(ctx context.Context) error
}
