package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/memory"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, e notify.Event) (*domain.Notification, error) {
	r.events = append(r.events, e)
	return domain.NewNotification(e.TargetUserID, e.Kind, notify.Message(e)), nil
}

func setup(t *testing.T) (*Service, *memory.Store, *recordingNotifier, *domain.User, *domain.User) {
	t.Helper()
	st := memory.New()
	ann := domain.NewUser(domain.ProviderIdentity{Provider: "google", ProviderID: "1", Name: "Ann"})
	bob := domain.NewUser(domain.ProviderIdentity{Provider: "google", ProviderID: "2", Name: "Bob"})
	require.NoError(t, st.CreateUser(context.Background(), ann))
	require.NoError(t, st.CreateUser(context.Background(), bob))
	n := &recordingNotifier{}
	return NewService(st, st, st, st, n, zap.NewNop()), st, n, ann, bob
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, _ := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Title: "Go", Content: "hello", Tags: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, ann.ID, p.UserID)
	assert.NotEmpty(t, p.ID)
	assert.Empty(t, p.MediaURLs)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := svc.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	_, err = svc.CreatePost(ctx, "ghost", domain.PostInput{Content: "x"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.CreatePost(ctx, "", domain.PostInput{Content: "x"})
	assert.True(t, apperrors.IsUnauthenticated(err))

	_, err = svc.CreatePost(ctx, ann.ID, domain.PostInput{Title: " ", Content: ""})
	assert.True(t, apperrors.IsInvalid(err))
}

func TestUpdatePost_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "v1"})
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, bob.ID, p.ID, domain.PostInput{Content: "hijack"})
	assert.True(t, apperrors.IsForbidden(err))

	got, err := svc.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Content)

	updated, err := svc.UpdatePost(ctx, ann.ID, p.ID, domain.PostInput{Title: "t", Content: "v2", MediaURLs: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Content)
	assert.Equal(t, []string{"a.png"}, updated.MediaURLs)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	_, err = svc.UpdatePost(ctx, ann.ID, "missing", domain.PostInput{Content: "x"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePost_ForbiddenLeavesPost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "mine"})
	require.NoError(t, err)

	err = svc.DeletePost(ctx, bob.ID, p.ID)
	assert.True(t, apperrors.IsForbidden(err))

	got, err := svc.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
}

func TestDeletePost_Cascades(t *testing.T) {
	ctx := context.Background()
	svc, st, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "doomed"})
	require.NoError(t, err)
	other, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "survivor"})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, bob.ID, p.ID, "nice")
	require.NoError(t, err)
	keep, err := svc.AddComment(ctx, bob.ID, other.ID, "also nice")
	require.NoError(t, err)
	_, err = svc.AddReply(ctx, ann.ID, c.ID, "thanks")
	require.NoError(t, err)

	require.NoError(t, st.InsertLike(ctx, domain.NewLike(domain.PostTarget(p.ID), bob.ID)))
	require.NoError(t, st.InsertLike(ctx, domain.NewLike(domain.CommentTarget(c.ID), ann.ID)))
	require.NoError(t, st.InsertLike(ctx, domain.NewLike(domain.PostTarget(other.ID), bob.ID)))
	require.NoError(t, svc.SavePost(ctx, bob.ID, p.ID))
	require.NoError(t, svc.SavePost(ctx, bob.ID, other.ID))

	require.NoError(t, svc.DeletePost(ctx, ann.ID, p.ID))

	_, err = svc.GetPost(ctx, p.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = st.GetComment(ctx, c.ID)
	assert.Error(t, err)

	replies, err := st.ListReplies(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)

	n, err := st.CountLikes(ctx, domain.PostTarget(p.ID))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = st.CountLikes(ctx, domain.CommentTarget(c.ID))
	require.NoError(t, err)
	assert.Zero(t, n)

	u, err := st.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, u.SavedPosts)

	// unrelated records survive
	_, err = st.GetComment(ctx, keep.ID)
	assert.NoError(t, err)
	n, err = st.CountLikes(ctx, domain.PostTarget(other.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostsByAuthor(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, bob := setup(t)

	first, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "1"})
	require.NoError(t, err)
	second, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "2"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, bob.ID, domain.PostInput{Content: "3"})
	require.NoError(t, err)

	posts, err := svc.PostsByAuthor(ctx, ann.ID, domain.Window{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)

	_, err = svc.PostsByAuthor(ctx, "ghost", domain.Window{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	svc, _, n, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "post"})
	require.NoError(t, err)

	c1, err := svc.AddComment(ctx, bob.ID, p.ID, "great read")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, ann.ID, p.ID, "thanks")
	require.NoError(t, err)

	require.Len(t, n.events, 1, "commenting on own post does not notify")
	assert.Equal(t, "Bob commented on your post: great read", notify.Message(n.events[0]))
	assert.Equal(t, ann.ID, n.events[0].TargetUserID)

	list, err := svc.Comments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c1.ID, list[0].ID)

	count, err := svc.CommentCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.UpdateComment(ctx, ann.ID, c1.ID, "edited")
	assert.True(t, apperrors.IsForbidden(err))
	updated, err := svc.UpdateComment(ctx, bob.ID, c1.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	_, err = svc.AddComment(ctx, bob.ID, "missing", "x")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = svc.AddComment(ctx, bob.ID, p.ID, "  ")
	assert.True(t, apperrors.IsInvalid(err))
}

func TestDeleteComment_Cascades(t *testing.T) {
	ctx := context.Background()
	svc, st, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "post"})
	require.NoError(t, err)
	c, err := svc.AddComment(ctx, bob.ID, p.ID, "hi")
	require.NoError(t, err)
	r, err := svc.AddReply(ctx, ann.ID, c.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, c.ID, r.CommentID)
	require.NoError(t, st.InsertLike(ctx, domain.NewLike(domain.CommentTarget(c.ID), ann.ID)))

	err = svc.DeleteComment(ctx, ann.ID, c.ID)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, svc.DeleteComment(ctx, bob.ID, c.ID))

	_, err = svc.Replies(ctx, c.ID)
	assert.True(t, apperrors.IsNotFound(err))
	replies, err := st.ListReplies(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
	n, err := st.CountLikes(ctx, domain.CommentTarget(c.ID))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplies(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "post"})
	require.NoError(t, err)
	c, err := svc.AddComment(ctx, bob.ID, p.ID, "hi")
	require.NoError(t, err)

	first, err := svc.AddReply(ctx, ann.ID, c.ID, "one")
	require.NoError(t, err)
	_, err = svc.AddReply(ctx, bob.ID, c.ID, "two")
	require.NoError(t, err)

	replies, err := svc.Replies(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, first.ID, replies[0].ID)

	_, err = svc.AddReply(ctx, ann.ID, "missing", "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSavedPosts(t *testing.T) {
	ctx := context.Background()
	svc, _, _, ann, bob := setup(t)

	p, err := svc.CreatePost(ctx, ann.ID, domain.PostInput{Content: "post"})
	require.NoError(t, err)

	require.NoError(t, svc.SavePost(ctx, bob.ID, p.ID))
	require.NoError(t, svc.SavePost(ctx, bob.ID, p.ID))

	saved, err := svc.SavedPosts(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, p.ID, saved[0].ID)

	require.NoError(t, svc.UnsavePost(ctx, bob.ID, p.ID))
	require.NoError(t, svc.UnsavePost(ctx, bob.ID, p.ID))
	saved, err = svc.SavedPosts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)

	err = svc.SavePost(ctx, bob.ID, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
