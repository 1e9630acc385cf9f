package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
)

// newTestStore connects to MONGO_TEST_URI with a throwaway database
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Connect(ctx, uri, "thinkflow_test_"+uuid.NewString()[:8], false)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func createUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	u := domain.NewUser(domain.ProviderIdentity{Provider: "google", ProviderID: "g-" + name, Name: name, Email: name + "@example.com"})
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestUsers_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ann := createUser(t, s, "ann")
	bob := createUser(t, s, "bob")

	both, err := s.GetUsers(ctx, []string{ann.ID, "missing", bob.ID})
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, ann.ID, both[0].ID)
	assert.Equal(t, bob.ID, both[1].ID)

	got, err := s.FindByIdentity(ctx, "google", "g-ann")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)
	assert.Equal(t, domain.DefaultStatus, got.Status)

	_, err = s.FindByIdentity(ctx, "facebook", "g-ann")
	assert.ErrorIs(t, err, store.ErrNotFound)

	byEmail, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, byEmail.ID)

	found, err := s.SearchUsers(ctx, store.UserQuery{Name: "B", ExcludeID: ann.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob", found[0].Name)

	page, err := s.ListUsersExcluding(ctx, []string{ann.ID}, domain.Window{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestFollow_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createUser(t, s, "ann")
	b := createUser(t, s, "bob")

	added, err := s.AddFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, added)

	following, err := s.Following(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, following)
	followers, err := s.Followers(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, followers)

	_, err = s.AddFollow(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	removed, err := s.RemoveFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	followers, err = s.Followers(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestLikes_UniqueIndex_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := domain.PostTarget("post-1")

	require.NoError(t, s.InsertLike(ctx, domain.NewLike(target, "u1")))
	err := s.InsertLike(ctx, domain.NewLike(target, "u1"))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// the same ids on a comment target live in another collection
	require.NoError(t, s.InsertLike(ctx, domain.NewLike(domain.CommentTarget("post-1"), "u1")))

	n, err := s.CountLikes(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	deleted, err := s.DeleteLikesByTargets(ctx, domain.TargetPost, []string{"post-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err = s.CountLikes(ctx, domain.CommentTarget("post-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostsAndComments_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := createUser(t, s, "ann")

	p1 := domain.NewPost(ann.ID, domain.PostInput{Content: "first"})
	p1.CreatedAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, s.CreatePost(ctx, p1))
	p2 := domain.NewPost(ann.ID, domain.PostInput{Content: "second"})
	require.NoError(t, s.CreatePost(ctx, p2))

	posts, err := s.ListPosts(ctx, domain.Window{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p2.ID, posts[0].ID)

	c := domain.NewComment(p1.ID, ann.ID, "hi")
	require.NoError(t, s.CreateComment(ctx, c))
	require.NoError(t, s.CreateReply(ctx, domain.NewReply(c.ID, ann.ID, "re")))

	count, err := s.CountComments(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err := s.DeleteRepliesByComments(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.DeleteCommentsByPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeletePost(ctx, p1.ID))
	_, err = s.GetPost(ctx, p1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifications_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := domain.NewNotification("u1", domain.NotificationFollow, "Ann started following you.")
	require.NoError(t, s.CreateNotification(ctx, n))

	unread, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, s.MarkRead(ctx, n.ID))
	require.NoError(t, s.MarkRead(ctx, n.ID))

	unread, err = s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	assert.ErrorIs(t, s.MarkRead(ctx, "missing"), store.ErrNotFound)
}
