package mongo

import (
	"time"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

type userDoc struct {
	ID         string            `bson:"_id"`
	Identities []domain.Identity `bson:"identities"`
	Name       string            `bson:"name"`
	Email      string            `bson:"email"`
	Picture    string            `bson:"picture"`
	Bio        string            `bson:"bio"`
	Status     string            `bson:"status"`
	Followers  []string          `bson:"followers"`
	Following  []string          `bson:"following"`
	SavedPosts []string          `bson:"saved_posts"`
	CreatedAt  time.Time         `bson:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:         u.ID,
		Identities: u.Identities,
		Name:       u.Name,
		Email:      u.Email,
		Picture:    u.Picture,
		Bio:        u.Bio,
		Status:     u.Status,
		Followers:  nonNil(u.Followers),
		Following:  nonNil(u.Following),
		SavedPosts: nonNil(u.SavedPosts),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:         d.ID,
		Identities: d.Identities,
		Name:       d.Name,
		Email:      d.Email,
		Picture:    d.Picture,
		Bio:        d.Bio,
		Status:     d.Status,
		Followers:  nonNil(d.Followers),
		Following:  nonNil(d.Following),
		SavedPosts: nonNil(d.SavedPosts),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type postDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	MediaURLs []string  `bson:"media_urls"`
	Tags      []string  `bson:"tags"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toPostDoc(p *domain.Post) postDoc {
	return postDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		MediaURLs: nonNil(p.MediaURLs),
		Tags:      nonNil(p.Tags),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (d postDoc) toDomain() domain.Post {
	return domain.Post{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Content:   d.Content,
		MediaURLs: nonNil(d.MediaURLs),
		Tags:      nonNil(d.Tags),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"post_id"`
	UserID    string    `bson:"user_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d commentDoc) toDomain() domain.Comment {
	return domain.Comment(d)
}

type replyDoc struct {
	ID        string    `bson:"_id"`
	CommentID string    `bson:"comment_id"`
	UserID    string    `bson:"user_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d replyDoc) toDomain() domain.Reply {
	return domain.Reply(d)
}

// likeDoc omits the kind; it is implied by the collection
type likeDoc struct {
	ID        string    `bson:"_id"`
	TargetID  string    `bson:"target_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d likeDoc) toDomain(kind domain.TargetKind) domain.Like {
	return domain.Like{ID: d.ID, Kind: kind, TargetID: d.TargetID, UserID: d.UserID, CreatedAt: d.CreatedAt}
}

type notificationDoc struct {
	ID        string                  `bson:"_id"`
	UserID    string                  `bson:"user_id"`
	Message   string                  `bson:"message"`
	Type      domain.NotificationType `bson:"type"`
	Read      bool                    `bson:"read"`
	CreatedAt time.Time               `bson:"created_at"`
}

func (d notificationDoc) toDomain() domain.Notification {
	return domain.Notification(d)
}
