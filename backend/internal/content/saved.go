package content

import (
	"context"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// SavePost adds postID to the actor's saved set; saving twice is a no-op
func (s *Service) SavePost(ctx context.Context, actorID, postID string) error {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return err
	}
	if _, err := s.users.AddSavedPost(ctx, actorID, postID); err != nil {
		return lookupErr("user", actorID, err)
	}
	return nil
}

// UnsavePost removes postID from the actor's saved set
func (s *Service) UnsavePost(ctx context.Context, actorID, postID string) error {
	if _, err := s.users.RemoveSavedPost(ctx, actorID, postID); err != nil {
		return lookupErr("user", actorID, err)
	}
	return nil
}

// SavedPosts resolves the actor's saved ids to posts, dropping ids whose post is gone
func (s *Service) SavedPosts(ctx context.Context, actorID string) ([]domain.Post, error) {
	u, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(u.SavedPosts) == 0 {
		return []domain.Post{}, nil
	}
	posts, err := s.posts.GetPosts(ctx, u.SavedPosts)
	if err != nil {
		return nil, apperrors.NewStoreFailed("get saved posts", err)
	}
	return posts, nil
}
