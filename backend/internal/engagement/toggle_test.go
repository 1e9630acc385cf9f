package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/memory"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, e notify.Event) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return domain.NewNotification(e.TargetUserID, e.Kind, notify.Message(e)), nil
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *recordingNotifier
	liker    *domain.User
	owner    *domain.User
	post     *domain.Post
	comment  *domain.Comment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	liker := domain.NewUser(domain.ProviderIdentity{Provider: "google", ProviderID: "1", Name: "Ann"})
	owner := domain.NewUser(domain.ProviderIdentity{Provider: "google", ProviderID: "2", Name: "Bob"})
	require.NoError(t, st.CreateUser(ctx, liker))
	require.NoError(t, st.CreateUser(ctx, owner))

	post := domain.NewPost(owner.ID, domain.PostInput{Title: "t", Content: "hello"})
	require.NoError(t, st.CreatePost(ctx, post))
	comment := domain.NewComment(post.ID, owner.ID, "first")
	require.NoError(t, st.CreateComment(ctx, comment))

	n := &recordingNotifier{}
	return &fixture{
		svc:      NewService(st, st, st, st, lock.NewLocal(), n, zap.NewNop()),
		store:    st,
		notifier: n,
		liker:    liker,
		owner:    owner,
		post:     post,
		comment:  comment,
	}
}

func TestToggle_Involution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := domain.PostTarget(f.post.ID)

	state, err := f.svc.Toggle(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeState{Count: 1, Liked: true}, state)

	liked, err := f.svc.HasLiked(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	state, err = f.svc.Toggle(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeState{Count: 0, Liked: false}, state)

	liked, err = f.svc.HasLiked(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggle_NotifiesOnlyOnCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := domain.PostTarget(f.post.ID)

	for i := 0; i < 4; i++ {
		_, err := f.svc.Toggle(ctx, f.liker.ID, target)
		require.NoError(t, err)
	}

	require.Len(t, f.notifier.events, 2)
	for _, e := range f.notifier.events {
		assert.Equal(t, domain.NotificationLike, e.Kind)
		assert.Equal(t, f.owner.ID, e.TargetUserID)
		assert.Equal(t, "Ann liked your post.", notify.Message(e))
	}
}

func TestToggle_OwnContentDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	state, err := f.svc.Toggle(ctx, f.owner.ID, domain.PostTarget(f.post.ID))
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Empty(t, f.notifier.events)
}

func TestToggle_Comment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := domain.CommentTarget(f.comment.ID)

	state, err := f.svc.Toggle(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Count)

	postCount, err := f.svc.Count(ctx, domain.PostTarget(f.post.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(0), postCount, "comment likes are kept apart from post likes")

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "Ann liked your comment.", notify.Message(f.notifier.events[0]))
}

func TestToggle_MissingTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Toggle(ctx, f.liker.ID, domain.PostTarget("missing"))
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Toggle(ctx, f.liker.ID, domain.CommentTarget("missing"))
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Toggle(ctx, "ghost", domain.PostTarget(f.post.ID))
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Toggle(ctx, f.liker.ID, domain.Target{Kind: "video", ID: "x"})
	assert.True(t, apperrors.IsInvalid(err))
}

func TestToggle_ConcurrentSameActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := domain.PostTarget(f.post.ID)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Toggle(ctx, f.liker.ID, target)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := f.svc.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "an even number of serialized toggles ends unliked")
	assert.Len(t, f.notifier.events, 25)
}

func TestState_AndLikes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := domain.PostTarget(f.post.ID)

	_, err := f.svc.Toggle(ctx, f.liker.ID, target)
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, f.owner.ID, target)
	require.NoError(t, err)

	state, err := f.svc.State(ctx, f.liker.ID, target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeState{Count: 2, Liked: true}, state)

	anon, err := f.svc.State(ctx, "", target)
	require.NoError(t, err)
	assert.False(t, anon.Liked)

	likes, err := f.svc.Likes(ctx, target)
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, f.liker.ID, likes[0].UserID)
}

type brokenLocker struct{}

func (brokenLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("NOAUTH Authentication required")
}

func TestToggle_LockBackendFailureIsStoreError(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, f.store, f.store, f.store, brokenLocker{}, f.notifier, zap.NewNop())

	_, err := svc.Toggle(context.Background(), f.liker.ID, domain.PostTarget(f.post.ID))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStore, apperrors.TypeOf(err))

	n, err := f.store.CountLikes(context.Background(), domain.PostTarget(f.post.ID))
	require.NoError(t, err)
	assert.Zero(t, n)
}
