package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

// ============================================================================
// Sessions
// ============================================================================

type loginRequest struct {
	Provider    string `json:"provider" binding:"required"`
	AccessToken string `json:"accessToken" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	pi, err := h.Providers.Fetch(ctx, req.Provider, req.AccessToken)
	if err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.Resolver.Resolve(ctx, pi)
	if err != nil {
		h.respondError(c, err)
		return
	}
	token, expires, err := h.Tokens.Issue(user.ID, user.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info("User logged in", zap.String("user_id", user.ID), zap.String("provider", pi.Provider))
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

// logout has nothing to revoke; tokens expire on their own
func (h *handler) logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *handler) live(c *gin.Context) {
	if err := h.Live.Serve(c.Writer, c.Request, currentUser(c)); err != nil {
		h.log.Debug("Websocket upgrade failed", zap.Error(err))
	}
}

// ============================================================================
// Profiles
// ============================================================================

// getProfile is the caller's own record, private fields included
func (h *handler) getProfile(c *gin.Context) {
	u, ok := h.loadUser(c, currentUser(c))
	if ok {
		c.JSON(http.StatusOK, u)
	}
}

func (h *handler) getUser(c *gin.Context) {
	u, ok := h.loadUser(c, c.Param("id"))
	if ok {
		c.JSON(http.StatusOK, u.Public())
	}
}

func (h *handler) loadUser(c *gin.Context, userID string) (*domain.User, bool) {
	ctx := c.Request.Context()
	u, err := h.Profiles.Get(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if err := h.Social.Hydrate(ctx, u); err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return u, true
}

func publicProfiles(users []domain.User) []domain.PublicProfile {
	out := make([]domain.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

func (h *handler) updateProfile(c *gin.Context) {
	var upd domain.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Profiles.Update(c.Request.Context(), currentUser(c), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) searchUsers(c *gin.Context) {
	users, err := h.Profiles.Search(c.Request.Context(), currentUser(c), c.Query("name"), c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProfiles(users))
}

func (h *handler) userDetails(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	users, err := h.Profiles.Details(c.Request.Context(), req.IDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProfiles(users))
}

// ============================================================================
// Follow graph
// ============================================================================

func (h *handler) follow(c *gin.Context) {
	if err := h.Social.Follow(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

func (h *handler) unfollow(c *gin.Context) {
	if err := h.Social.Unfollow(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

func (h *handler) followers(c *gin.Context) {
	ids, err := h.Social.Followers(c.Request.Context(), c.Param("id"))
	h.writeUsers(c, ids, err)
}

func (h *handler) following(c *gin.Context) {
	ids, err := h.Social.Following(c.Request.Context(), c.Param("id"))
	h.writeUsers(c, ids, err)
}

func (h *handler) friends(c *gin.Context) {
	ids, err := h.Social.Friends(c.Request.Context(), c.Param("id"))
	h.writeUsers(c, ids, err)
}

func (h *handler) mutualFriends(c *gin.Context) {
	ids, err := h.Social.MutualFriends(c.Request.Context(), c.Param("id"), c.Param("otherId"))
	h.writeUsers(c, ids, err)
}

// writeUsers resolves an id list into user records
func (h *handler) writeUsers(c *gin.Context, ids []string, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	users, err := h.Profiles.Details(c.Request.Context(), ids)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProfiles(users))
}

func (h *handler) usersNotFollowing(c *gin.Context) {
	w, err := h.window(c, h.DefaultPageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	page, err := h.Social.UsersNotFollowing(c.Request.Context(), currentUser(c), w)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.Page[domain.PublicProfile]{
		Items: publicProfiles(page.Items),
		Page:  page.Page,
		Size:  page.Size,
		Total: page.Total,
	})
}
