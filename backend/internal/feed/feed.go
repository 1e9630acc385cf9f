// Package feed assembles the global and following feeds.
package feed

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Assembler builds feeds, newest first, with an author card per entry
type Assembler struct {
	users  store.UserStore
	graph  store.GraphStore
	posts  store.PostStore
	logger *zap.Logger
}

// NewAssembler creates a feed assembler
func NewAssembler(users store.UserStore, graph store.GraphStore, posts store.PostStore, log *zap.Logger) *Assembler {
	return &Assembler{users: users, graph: graph, posts: posts, logger: log.Named("feed")}
}

// Global returns every post, newest first
func (a *Assembler) Global(ctx context.Context, w domain.Window) ([]domain.FeedEntry, error) {
	posts, err := a.posts.ListPosts(ctx, w)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list posts", err)
	}
	return a.withAuthors(ctx, posts)
}

// Following returns posts authored by the users userID follows, newest first.
// An empty following set yields an empty feed.
func (a *Assembler) Following(ctx context.Context, userID string, w domain.Window) ([]domain.FeedEntry, error) {
	if _, err := a.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", userID)
		}
		return nil, apperrors.NewStoreFailed("get user", err)
	}

	following, err := a.graph.Following(ctx, userID)
	if err != nil {
		return nil, apperrors.NewStoreFailed("following", err)
	}
	if len(following) == 0 {
		return []domain.FeedEntry{}, nil
	}

	posts, err := a.posts.ListPostsByAuthors(ctx, following, w)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list following posts", err)
	}
	return a.withAuthors(ctx, posts)
}

// withAuthors loads every distinct author in one query
func (a *Assembler) withAuthors(ctx context.Context, posts []domain.Post) ([]domain.FeedEntry, error) {
	ids := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}

	authors := make(map[string]domain.Author, len(ids))
	if len(ids) > 0 {
		users, err := a.users.GetUsers(ctx, ids)
		if err != nil {
			return nil, apperrors.NewStoreFailed("get authors", err)
		}
		for _, u := range users {
			authors[u.ID] = u.Summary()
		}
	}

	out := make([]domain.FeedEntry, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.UserID]
		if !ok {
			a.logger.Debug("Post author missing", zap.String("post_id", p.ID), zap.String("user_id", p.UserID))
			author = domain.Author{ID: p.UserID}
		}
		out = append(out, domain.FeedEntry{Post: p, Author: author})
	}
	return out, nil
}
