package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry owned by a single user
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaURLs []string  `json:"mediaUrls"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostInput holds the mutable fields of a post
type PostInput struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls"`
	Tags      []string `json:"tags"`
}

// NewPost stamps owner, id and timestamps
func NewPost(userID string, in PostInput) *Post {
	now := time.Now().UTC()
	p := &Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.apply(in)
	return p
}

// Update overwrites the mutable fields
func (p *Post) Update(in PostInput) {
	p.apply(in)
	p.UpdatedAt = time.Now().UTC()
}

func (p *Post) apply(in PostInput) {
	p.Title = in.Title
	p.Content = in.Content
	p.MediaURLs = nonNil(in.MediaURLs)
	p.Tags = nonNil(in.Tags)
}

// Comment is attached to a post
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewComment(postID, userID, content string) *Comment {
	now := time.Now().UTC()
	return &Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reply is attached to a comment; replies are never edited
type Reply struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewReply(commentID, userID, content string) *Reply {
	return &Reply{
		ID:        uuid.NewString(),
		CommentID: commentID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// FeedEntry is a post with its author card
type FeedEntry struct {
	Post
	Author Author `json:"author"`
}

// Page is one slice of a paginated listing
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

// Window is a zero-based page request; Size 0 means unbounded
type Window struct {
	Page int
	Size int
}

// Offset returns the number of records to skip, saturating at math.MaxInt
func (w Window) Offset() int {
	if w.Size <= 0 || w.Page <= 0 {
		return 0
	}
	if w.Page > math.MaxInt/w.Size {
		return math.MaxInt
	}
	return w.Page * w.Size
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
