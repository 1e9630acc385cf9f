// Package memory is an in-process implementation of store.Store used for
// local development and tests. Records are copied on the way in and out.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

type likeKey struct {
	kind     domain.TargetKind
	targetID string
	userID   string
}

// entry keeps insertion order to break timestamp ties
type entry[T any] struct {
	seq int64
	val T
}

// Store holds every collection behind a single lock
type Store struct {
	mu            sync.RWMutex
	seq           int64
	users         map[string]*entry[domain.User]
	posts         map[string]*entry[domain.Post]
	comments      map[string]*entry[domain.Comment]
	replies       map[string]*entry[domain.Reply]
	likes         map[likeKey]*entry[domain.Like]
	notifications map[string]*entry[domain.Notification]
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		users:         make(map[string]*entry[domain.User]),
		posts:         make(map[string]*entry[domain.Post]),
		comments:      make(map[string]*entry[domain.Comment]),
		replies:       make(map[string]*entry[domain.Reply]),
		likes:         make(map[likeKey]*entry[domain.Like]),
		notifications: make(map[string]*entry[domain.Notification]),
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// ============================================================================
// Users
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	s.users[u.ID] = &entry[domain.User]{seq: s.next(), val: cloneUser(*u)}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.val.Identities = append([]domain.Identity(nil), u.Identities...)
	e.val.Name = u.Name
	e.val.Email = u.Email
	e.val.Picture = u.Picture
	e.val.Bio = u.Bio
	e.val.Status = u.Status
	e.val.UpdatedAt = u.UpdatedAt
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := cloneUser(e.val)
	return &u, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.users[id]; ok {
			out = append(out, cloneUser(e.val))
		}
	}
	return out, nil
}

func (s *Store) FindByIdentity(ctx context.Context, provider, providerID string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return u.HasIdentity(provider, providerID) })
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, store.ErrNotFound
	}
	return s.findUser(func(u *domain.User) bool { return u.Email == email })
}

func (s *Store) findUser(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.users {
		if match(&e.val) {
			u := cloneUser(e.val)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsersExcluding(ctx context.Context, exclude []string, w domain.Window) (domain.Page[domain.User], error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.User]
	for id, e := range s.users {
		if _, ok := skip[id]; !ok {
			matched = append(matched, e)
		}
	}

	sortNewest(matched, func(u domain.User) int64 { return u.CreatedAt.UnixNano() })

	page := domain.Page[domain.User]{Page: w.Page, Size: w.Size, Total: int64(len(matched))}
	for _, e := range window(matched, w) {
		page.Items = append(page.Items, cloneUser(e.val))
	}
	if page.Items == nil {
		page.Items = []domain.User{}
	}
	return page, nil
}

func (s *Store) SearchUsers(ctx context.Context, q store.UserQuery) ([]domain.User, error) {
	name := strings.ToLower(q.Name)
	email := strings.ToLower(q.Email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.User]
	for id, e := range s.users {
		if id == q.ExcludeID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(e.val.Name), name) {
			continue
		}
		if email != "" && !strings.Contains(strings.ToLower(e.val.Email), email) {
			continue
		}
		matched = append(matched, e)
	}

	sortNewest(matched, func(u domain.User) int64 { return u.CreatedAt.UnixNano() })
	out := make([]domain.User, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneUser(e.val))
	}
	return out, nil
}

func (s *Store) AddSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	var added bool
	e.val.SavedPosts, added = addToSet(e.val.SavedPosts, postID)
	return added, nil
}

func (s *Store) RemoveSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	var removed bool
	e.val.SavedPosts, removed = pull(e.val.SavedPosts, postID)
	return removed, nil
}

func (s *Store) PullSavedPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.users {
		e.val.SavedPosts, _ = pull(e.val.SavedPosts, postID)
	}
	return nil
}

// ============================================================================
// Follow graph
// ============================================================================

// AddFollow updates both sides under one lock
func (s *Store) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	follower, ok := s.users[followerID]
	if !ok {
		return false, store.ErrNotFound
	}
	followee, ok := s.users[followeeID]
	if !ok {
		return false, store.ErrNotFound
	}
	var added bool
	follower.val.Following, added = addToSet(follower.val.Following, followeeID)
	followee.val.Followers, _ = addToSet(followee.val.Followers, followerID)
	return added, nil
}

func (s *Store) RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	follower, ok := s.users[followerID]
	if !ok {
		return false, store.ErrNotFound
	}
	followee, ok := s.users[followeeID]
	if !ok {
		return false, store.ErrNotFound
	}
	var removed bool
	follower.val.Following, removed = pull(follower.val.Following, followeeID)
	followee.val.Followers, _ = pull(followee.val.Followers, followerID)
	return removed, nil
}

func (s *Store) Followers(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]string{}, e.val.Followers...), nil
}

func (s *Store) Following(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]string{}, e.val.Following...), nil
}

// ============================================================================
// Posts
// ============================================================================

func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.ID]; ok {
		return store.ErrDuplicate
	}
	s.posts[p.ID] = &entry[domain.Post]{seq: s.next(), val: clonePost(*p)}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.posts[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.val = clonePost(*p)
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := clonePost(e.val)
	return &p, nil
}

func (s *Store) GetPosts(ctx context.Context, ids []string) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.posts[id]; ok {
			out = append(out, clonePost(e.val))
		}
	}
	return out, nil
}

func (s *Store) ListPosts(ctx context.Context, w domain.Window) ([]domain.Post, error) {
	return s.listPosts(func(*domain.Post) bool { return true }, w), nil
}

func (s *Store) ListPostsByAuthors(ctx context.Context, userIDs []string, w domain.Window) ([]domain.Post, error) {
	authors := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		authors[id] = struct{}{}
	}
	return s.listPosts(func(p *domain.Post) bool {
		_, ok := authors[p.UserID]
		return ok
	}, w), nil
}

func (s *Store) listPosts(match func(*domain.Post) bool, w domain.Window) []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.Post]
	for _, e := range s.posts {
		if match(&e.val) {
			matched = append(matched, e)
		}
	}

	sortNewest(matched, func(p domain.Post) int64 { return p.CreatedAt.UnixNano() })
	out := make([]domain.Post, 0, len(matched))
	for _, e := range window(matched, w) {
		out = append(out, clonePost(e.val))
	}
	return out
}

// ============================================================================
// Comments and replies
// ============================================================================

func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[c.ID] = &entry[domain.Comment]{seq: s.next(), val: *c}
	return nil
}

func (s *Store) UpdateComment(ctx context.Context, c *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.comments[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.val = *c
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.comments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := e.val
	return &c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.Comment]
	for _, e := range s.comments {
		if e.val.PostID == postID {
			matched = append(matched, e)
		}
	}

	sortOldest(matched, func(c domain.Comment) int64 { return c.CreatedAt.UnixNano() })
	out := make([]domain.Comment, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.val)
	}
	return out, nil
}

func (s *Store) CountComments(ctx context.Context, postID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.comments {
		if e.val.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteCommentsByPost(ctx context.Context, postID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.comments {
		if e.val.PostID == postID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[r.ID] = &entry[domain.Reply]{seq: s.next(), val: *r}
	return nil
}

func (s *Store) ListReplies(ctx context.Context, commentID string) ([]domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.Reply]
	for _, e := range s.replies {
		if e.val.CommentID == commentID {
			matched = append(matched, e)
		}
	}

	sortOldest(matched, func(r domain.Reply) int64 { return r.CreatedAt.UnixNano() })
	out := make([]domain.Reply, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.val)
	}
	return out, nil
}

func (s *Store) DeleteRepliesByComments(ctx context.Context, commentIDs []string) (int64, error) {
	ids := make(map[string]struct{}, len(commentIDs))
	for _, id := range commentIDs {
		ids[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.replies {
		if _, ok := ids[e.val.CommentID]; ok {
			delete(s.replies, id)
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Likes
// ============================================================================

func (s *Store) InsertLike(ctx context.Context, l *domain.Like) error {
	key := likeKey{kind: l.Kind, targetID: l.TargetID, userID: l.UserID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.likes[key]; ok {
		return store.ErrDuplicate
	}
	s.likes[key] = &entry[domain.Like]{seq: s.next(), val: *l}
	return nil
}

func (s *Store) DeleteLike(ctx context.Context, target domain.Target, userID string) (bool, error) {
	key := likeKey{kind: target.Kind, targetID: target.ID, userID: userID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.likes[key]; !ok {
		return false, nil
	}
	delete(s.likes, key)
	return true, nil
}

func (s *Store) FindLike(ctx context.Context, target domain.Target, userID string) (*domain.Like, error) {
	key := likeKey{kind: target.Kind, targetID: target.ID, userID: userID}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.likes[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	l := e.val
	return &l, nil
}

func (s *Store) CountLikes(ctx context.Context, target domain.Target) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for k := range s.likes {
		if k.kind == target.Kind && k.targetID == target.ID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListLikes(ctx context.Context, target domain.Target) ([]domain.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.Like]
	for k, e := range s.likes {
		if k.kind == target.Kind && k.targetID == target.ID {
			matched = append(matched, e)
		}
	}

	sortOldest(matched, func(l domain.Like) int64 { return l.CreatedAt.UnixNano() })
	out := make([]domain.Like, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.val)
	}
	return out, nil
}

func (s *Store) DeleteLikesByTargets(ctx context.Context, kind domain.TargetKind, ids []string) (int64, error) {
	targets := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.likes {
		if _, ok := targets[k.targetID]; ok && k.kind == kind {
			delete(s.likes, k)
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Notifications
// ============================================================================

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = &entry[domain.Notification]{seq: s.next(), val: *n}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	n := e.val
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entry[domain.Notification]
	for _, e := range s.notifications {
		if e.val.UserID != userID || (unreadOnly && e.val.Read) {
			continue
		}
		matched = append(matched, e)
	}

	sortNewest(matched, func(n domain.Notification) int64 { return n.CreatedAt.UnixNano() })
	out := make([]domain.Notification, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.val)
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.notifications {
		if e.val.UserID == userID && !e.val.Read {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.notifications[id]
	if !ok {
		return store.ErrNotFound
	}
	e.val.Read = true
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func sortNewest[T any](entries []*entry[T], ts func(T) int64) {
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := ts(entries[i].val), ts(entries[j].val)
		if ti != tj {
			return ti > tj
		}
		return entries[i].seq > entries[j].seq
	})
}

func sortOldest[T any](entries []*entry[T], ts func(T) int64) {
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := ts(entries[i].val), ts(entries[j].val)
		if ti != tj {
			return ti < tj
		}
		return entries[i].seq < entries[j].seq
	})
}

func window[T any](entries []*entry[T], w domain.Window) []*entry[T] {
	if w.Size <= 0 {
		return entries
	}
	start := w.Offset()
	if start < 0 || start >= len(entries) {
		return nil
	}
	end := start + w.Size
	if end > len(entries) || end < start {
		end = len(entries)
	}
	return entries[start:end]
}

func addToSet(set []string, v string) ([]string, bool) {
	for _, s := range set {
		if s == v {
			return set, false
		}
	}
	return append(set, v), true
}

func pull(set []string, v string) ([]string, bool) {
	for i, s := range set {
		if s == v {
			out := append([]string{}, set[:i]...)
			return append(out, set[i+1:]...), true
		}
	}
	return set, false
}

func cloneUser(u domain.User) domain.User {
	u.Identities = append([]domain.Identity{}, u.Identities...)
	u.Followers = append([]string{}, u.Followers...)
	u.Following = append([]string{}, u.Following...)
	u.SavedPosts = append([]string{}, u.SavedPosts...)
	return u
}

func clonePost(p domain.Post) domain.Post {
	p.MediaURLs = append([]string{}, p.MediaURLs...)
	p.Tags = append([]string{}, p.Tags...)
	return p
}
