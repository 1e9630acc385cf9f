package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/content"
	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/engagement"
	"github.com/eranmadhuka/thinkflow/backend/internal/feed"
	"github.com/eranmadhuka/thinkflow/backend/internal/identity"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/metrics"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/social"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/memory"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// fakeProviders maps access tokens to provider identities
type fakeProviders map[string]domain.ProviderIdentity

func (f fakeProviders) Fetch(ctx context.Context, provider, accessToken string) (domain.ProviderIdentity, error) {
	pi, ok := f[accessToken]
	if !ok || pi.Provider != provider {
		return domain.ProviderIdentity{}, apperrors.NewUnauthenticated("unknown token", nil)
	}
	return pi, nil
}

type fakeLive struct{}

func (fakeLive) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	_, err := w.Write([]byte("live:" + userID))
	return err
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	st := memory.New()
	sink := notify.NewSink(st, nil, log)
	locker := lock.NewLocal()

	return NewRouter(Deps{
		Resolver: identity.NewResolver(st, locker, log),
		Profiles: identity.NewProfiles(st, log),
		Providers: fakeProviders{
			"ann-token": {Provider: "google", ProviderID: "g-ann", Name: "Ann", Email: "ann@example.com"},
			"bob-token": {Provider: "google", ProviderID: "g-bob", Name: "Bob", Email: "bob@example.com"},
		},
		Tokens:          identity.NewTokenIssuer("0123456789abcdef0123456789abcdef", "thinkflow", time.Hour),
		Social:          social.NewService(st, st, sink, log),
		Content:         content.NewService(st, st, st, st, sink, log),
		Likes:           engagement.NewService(st, st, st, st, locker, sink, log),
		Feed:            feed.NewAssembler(st, st, st, log),
		Notifications:   sink,
		Live:            fakeLive{},
		Metrics:         metrics.NewRecorder(),
		Logger:          log,
		DefaultPageSize: 10,
		MaxPageSize:     50,
	})
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func login(t *testing.T, router *gin.Engine, accessToken string) (string, domain.User) {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/login", "", gin.H{"provider": "google", "accessToken": accessToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[loginResponse](t, w)
	require.NotEmpty(t, resp.Token)
	return resp.Token, *resp.User
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)

	token, user := login(t, router, "ann-token")
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, domain.DefaultStatus, user.Status)

	// the same identity resolves to the same user
	_, again := login(t, router, "ann-token")
	assert.Equal(t, user.ID, again.ID)

	w := do(t, router, http.MethodGet, "/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[domain.User](t, w).ID)

	w = do(t, router, http.MethodPost, "/auth/login", "", gin.H{"provider": "google", "accessToken": "stolen"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodPost, "/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/posts", "", domain.PostInput{Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodGet, "/api/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebsocketAcceptsQueryToken(t *testing.T) {
	router := newTestRouter(t)
	token, ann := login(t, router, "ann-token")

	w := do(t, router, http.MethodGet, "/ws?token="+token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "live:"+ann.ID, w.Body.String())

	w = do(t, router, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFollowPostLikeFlow(t *testing.T) {
	router := newTestRouter(t)
	annToken, ann := login(t, router, "ann-token")
	bobToken, bob := login(t, router, "bob-token")

	// Ann follows Bob
	w := do(t, router, http.MethodPost, "/user/"+bob.ID+"/follow", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/user/"+bob.ID+"/followers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	followers := decode[[]domain.User](t, w)
	require.Len(t, followers, 1)
	assert.Equal(t, ann.ID, followers[0].ID)

	// Bob posts
	w = do(t, router, http.MethodPost, "/posts", bobToken, domain.PostInput{Title: "Hi", Content: "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[domain.Post](t, w)

	// Ann's following feed has exactly that post
	w = do(t, router, http.MethodGet, "/posts/following", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]domain.FeedEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, post.ID, entries[0].ID)
	assert.Equal(t, "Bob", entries[0].Author.Name)

	// like, then unlike
	w = do(t, router, http.MethodPost, "/posts/"+post.ID+"/like", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.LikeState{Count: 1, Liked: true}, decode[domain.LikeState](t, w))

	w = do(t, router, http.MethodGet, "/posts/"+post.ID+"/likes", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	likes := decode[likesResponse](t, w)
	assert.True(t, likes.Liked)
	require.Len(t, likes.Likes, 1)
	assert.Equal(t, ann.ID, likes.Likes[0].UserID)

	w = do(t, router, http.MethodPost, "/posts/"+post.ID+"/like", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.LikeState{Count: 0, Liked: false}, decode[domain.LikeState](t, w))

	// Bob got a follow and a like notification
	w = do(t, router, http.MethodGet, "/api/notifications/unread-count", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode[map[string]float64](t, w)["count"])

	w = do(t, router, http.MethodGet, "/api/notifications", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[[]domain.Notification](t, w)
	require.Len(t, notes, 2)

	// only the recipient may mark it read
	w = do(t, router, http.MethodPut, "/api/notifications/"+notes[0].ID+"/read", annToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, router, http.MethodPut, "/api/notifications/"+notes[0].ID+"/read", bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodPut, "/api/notifications/"+notes[0].ID+"/read", bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, "mark read is idempotent")
	w = do(t, router, http.MethodPut, "/api/notifications/missing/read", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/notifications/unread", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Notification](t, w), 1)
}

func TestPostOwnership(t *testing.T) {
	router := newTestRouter(t)
	annToken, _ := login(t, router, "ann-token")
	bobToken, _ := login(t, router, "bob-token")

	w := do(t, router, http.MethodPost, "/posts", annToken, domain.PostInput{Content: "mine"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode[domain.Post](t, w)

	w = do(t, router, http.MethodDelete, "/posts/"+post.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, router, http.MethodPut, "/posts/"+post.ID, bobToken, domain.PostInput{Content: "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodGet, "/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mine", decode[domain.Post](t, w).Content)

	w = do(t, router, http.MethodDelete, "/posts/"+post.ID, annToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/posts/"+post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentsAndReplies(t *testing.T) {
	router := newTestRouter(t)
	annToken, _ := login(t, router, "ann-token")
	bobToken, _ := login(t, router, "bob-token")

	w := do(t, router, http.MethodPost, "/posts", annToken, domain.PostInput{Content: "post"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode[domain.Post](t, w)

	w = do(t, router, http.MethodPost, "/posts/"+post.ID+"/comments", bobToken, gin.H{"content": "nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[domain.Comment](t, w)

	w = do(t, router, http.MethodPost, "/posts/"+post.ID+"/comments", bobToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/posts/"+post.ID+"/comments/count", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]float64](t, w)["count"])

	w = do(t, router, http.MethodPost, "/comments/"+comment.ID+"/replies", annToken, gin.H{"content": "thanks"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, router, http.MethodGet, "/comments/"+comment.ID+"/replies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Reply](t, w), 1)

	w = do(t, router, http.MethodPost, "/comments/"+comment.ID+"/like", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.LikeState{Count: 1, Liked: true}, decode[domain.LikeState](t, w))

	w = do(t, router, http.MethodPut, "/comments/"+comment.ID, annToken, gin.H{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, router, http.MethodDelete, "/comments/"+comment.ID, bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/comments/"+comment.ID+"/replies", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPagination(t *testing.T) {
	router := newTestRouter(t)
	annToken, _ := login(t, router, "ann-token")

	for i := 0; i < 3; i++ {
		w := do(t, router, http.MethodPost, "/posts", annToken, domain.PostInput{Content: "p"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, router, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.FeedEntry](t, w), 3)

	w = do(t, router, http.MethodGet, "/posts?page=1&size=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.FeedEntry](t, w), 1)

	w = do(t, router, http.MethodGet, "/posts?size=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// page * size would overflow int
	w = do(t, router, http.MethodGet, "/posts?page=4611686018427387905&size=2", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodGet, "/posts?page=1000000&size=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.FeedEntry](t, w))

	w = do(t, router, http.MethodGet, "/user/not-following", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[domain.Page[domain.User]](t, w)
	assert.Equal(t, 10, page.Size)
	assert.Empty(t, page.Items)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(apperrors.NewNotFound("post", "1")))
	assert.Equal(t, http.StatusForbidden, statusOf(apperrors.NewForbidden("u", "post 1")))
	assert.Equal(t, http.StatusUnauthorized, statusOf(apperrors.NewUnauthenticated("no token", nil)))
	assert.Equal(t, http.StatusBadRequest, statusOf(apperrors.NewInvalid("size", "bad")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(apperrors.NewStoreFailed("x", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("plain")))
}

func TestOtherUsersArePublicProfiles(t *testing.T) {
	router := newTestRouter(t)
	annToken, ann := login(t, router, "ann-token")
	bobToken, bob := login(t, router, "bob-token")

	w := do(t, router, http.MethodPost, "/user/"+bob.ID+"/follow", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	private := func(t *testing.T, raw map[string]any) {
		t.Helper()
		assert.NotContains(t, raw, "email")
		assert.NotContains(t, raw, "identities")
		assert.NotContains(t, raw, "savedPosts")
	}

	w = do(t, router, http.MethodGet, "/user/"+ann.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	one := decode[map[string]any](t, w)
	assert.Equal(t, ann.ID, one["id"])
	assert.Equal(t, []any{bob.ID}, one["following"])
	private(t, one)

	for _, path := range []string{"/user/" + bob.ID + "/followers", "/user/" + ann.ID + "/following", "/user/" + ann.ID + "/friends"} {
		w = do(t, router, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		list := decode[[]map[string]any](t, w)
		require.Len(t, list, 1, path)
		private(t, list[0])
	}

	w = do(t, router, http.MethodPost, "/user/details", "", gin.H{"ids": []string{ann.ID, bob.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	for _, u := range decode[[]map[string]any](t, w) {
		private(t, u)
	}

	w = do(t, router, http.MethodGet, "/user/search?name=ann", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]map[string]any](t, w)
	require.Len(t, found, 1)
	private(t, found[0])

	// the caller still sees their own email
	w = do(t, router, http.MethodGet, "/user/profile", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann@example.com", decode[domain.User](t, w).Email)
}
