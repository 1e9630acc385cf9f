// Package social implements the follow graph operations.
package social

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Notifier receives FOLLOW events
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) (*domain.Notification, error)
}

// Service maintains followers/following sets
type Service struct {
	users    store.UserStore
	graph    store.GraphStore
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the follow graph service
func NewService(users store.UserStore, graph store.GraphStore, notifier Notifier, log *zap.Logger) *Service {
	return &Service{users: users, graph: graph, notifier: notifier, logger: log.Named("social")}
}

// Follow adds followeeID to followerID's following set and the reverse edge.
// Following twice is a no-op and only the first call notifies.
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	follower, _, err := s.pair(ctx, followerID, followeeID)
	if err != nil {
		return err
	}

	added, err := s.graph.AddFollow(ctx, followerID, followeeID)
	if err != nil {
		return s.storeErr("follow", err, followerID, followeeID)
	}
	if !added {
		return nil
	}

	s.logger.Info("User followed",
		zap.String("follower_id", followerID),
		zap.String("followee_id", followeeID),
	)
	if _, err := s.notifier.Notify(ctx, notify.Event{
		Kind:         domain.NotificationFollow,
		ActorName:    follower.Name,
		TargetUserID: followeeID,
	}); err != nil {
		s.logger.Warn("Failed to notify follow", zap.String("followee_id", followeeID), zap.Error(err))
	}
	return nil
}

// Unfollow removes the edge from both sides; unfollowing twice is a no-op
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if _, _, err := s.pair(ctx, followerID, followeeID); err != nil {
		return err
	}

	removed, err := s.graph.RemoveFollow(ctx, followerID, followeeID)
	if err != nil {
		return s.storeErr("unfollow", err, followerID, followeeID)
	}
	if removed {
		s.logger.Info("User unfollowed",
			zap.String("follower_id", followerID),
			zap.String("followee_id", followeeID),
		)
	}
	return nil
}

// Followers returns the ids following userID
func (s *Service) Followers(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.graph.Followers(ctx, userID)
	if err != nil {
		return nil, s.storeErr("followers", err, userID)
	}
	return ids, nil
}

// Following returns the ids userID follows
func (s *Service) Following(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.graph.Following(ctx, userID)
	if err != nil {
		return nil, s.storeErr("following", err, userID)
	}
	return ids, nil
}

// Friends is the union of followers and following without userID itself
func (s *Service) Friends(ctx context.Context, userID string) ([]string, error) {
	followers, following, err := s.sets(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{userID: {}}
	friends := []string{}
	for _, id := range append(followers, following...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		friends = append(friends, id)
	}
	return friends, nil
}

// MutualFriends is following(A) ∩ following(B), plus B when A follows B and
// A when B follows A.
func (s *Service) MutualFriends(ctx context.Context, userID1, userID2 string) ([]string, error) {
	var following1, following2 []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.Following(gctx, userID1)
		following1 = ids
		return err
	})
	g.Go(func() error {
		ids, err := s.Following(gctx, userID2)
		following2 = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in2 := toSet(following2)
	in1 := toSet(following1)

	mutual := []string{}
	seen := map[string]struct{}{}
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		mutual = append(mutual, id)
	}

	for _, id := range following1 {
		if _, ok := in2[id]; ok {
			add(id)
		}
	}
	if _, ok := in1[userID2]; ok {
		add(userID2)
	}
	if _, ok := in2[userID1]; ok {
		add(userID1)
	}
	return mutual, nil
}

// UsersNotFollowing pages through users that currentUserID neither is nor follows, newest first
func (s *Service) UsersNotFollowing(ctx context.Context, currentUserID string, w domain.Window) (domain.Page[domain.User], error) {
	if w.Page < 0 || w.Size <= 0 {
		return domain.Page[domain.User]{}, apperrors.NewInvalid("page", "page must be >= 0 and size > 0")
	}

	following, err := s.Following(ctx, currentUserID)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}

	page, err := s.users.ListUsersExcluding(ctx, append(following, currentUserID), w)
	if err != nil {
		return domain.Page[domain.User]{}, s.storeErr("list users not followed", err, currentUserID)
	}
	return page, nil
}

// Hydrate fills the follow sets of u from the graph store
func (s *Service) Hydrate(ctx context.Context, u *domain.User) error {
	followers, following, err := s.sets(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Followers = followers
	u.Following = following
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Service) pair(ctx context.Context, followerID, followeeID string) (*domain.User, *domain.User, error) {
	if followerID == "" || followeeID == "" {
		return nil, nil, apperrors.NewInvalid("user id", "empty")
	}
	if followerID == followeeID {
		return nil, nil, apperrors.NewInvalid("followee", "users cannot follow themselves")
	}

	var follower, followee *domain.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.user(gctx, followerID)
		follower = u
		return err
	})
	g.Go(func() error {
		u, err := s.user(gctx, followeeID)
		followee = u
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return follower, followee, nil
}

func (s *Service) sets(ctx context.Context, userID string) ([]string, []string, error) {
	followers, err := s.Followers(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	following, err := s.graph.Following(ctx, userID)
	if err != nil {
		return nil, nil, s.storeErr("following", err, userID)
	}
	return followers, following, nil
}

func (s *Service) user(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, s.storeErr("get user", err, id)
	}
	return u, nil
}

func (s *Service) storeErr(op string, err error, ids ...string) error {
	if errors.Is(err, store.ErrNotFound) {
		id := ""
		if len(ids) > 0 {
			id = ids[0]
		}
		return apperrors.NewNotFound("user", id)
	}
	return apperrors.NewStoreFailed(op, err)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
