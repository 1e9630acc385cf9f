// Package api exposes the HTTP surface over gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/content"
	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/engagement"
	"github.com/eranmadhuka/thinkflow/backend/internal/feed"
	"github.com/eranmadhuka/thinkflow/backend/internal/identity"
	"github.com/eranmadhuka/thinkflow/backend/internal/metrics"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/social"
)

// ProviderLookup exchanges a provider access token for the provider profile
type ProviderLookup interface {
	Fetch(ctx context.Context, provider, accessToken string) (domain.ProviderIdentity, error)
}

// LiveChannel upgrades a request into the user's push connection
type LiveChannel interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// Deps are the services the handlers call into
type Deps struct {
	Resolver      *identity.Resolver
	Profiles      *identity.Profiles
	Providers     ProviderLookup
	Tokens        *identity.TokenIssuer
	Social        *social.Service
	Content       *content.Service
	Likes         *engagement.Service
	Feed          *feed.Assembler
	Notifications *notify.Sink
	Live          LiveChannel
	Metrics       *metrics.Recorder
	Logger        *zap.Logger

	DefaultPageSize int
	MaxPageSize     int
}

type handler struct {
	Deps
	log *zap.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	if d.DefaultPageSize <= 0 {
		d.DefaultPageSize = 20
	}
	if d.MaxPageSize < d.DefaultPageSize {
		d.MaxPageSize = d.DefaultPageSize
	}
	h := &handler{Deps: d, log: d.Logger.Named("api")}

	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics/latency", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"routes": d.Metrics.Snapshot()})
		})
	}

	auth := h.requireAuth()
	optional := h.optionalAuth()

	// Sessions
	router.POST("/auth/login", h.login)
	router.POST("/auth/logout", auth, h.logout)
	router.GET("/ws", auth, h.live)

	// Users and the follow graph
	users := router.Group("/user")
	{
		users.GET("/profile", auth, h.getProfile)
		users.PUT("/profile", auth, h.updateProfile)
		users.GET("/search", auth, h.searchUsers)
		users.POST("/details", h.userDetails)
		users.GET("/not-following", auth, h.usersNotFollowing)
		users.GET("/saved", auth, h.savedPosts)

		users.GET("/:id", h.getUser)
		users.GET("/:id/posts", h.postsByAuthor)
		users.GET("/:id/followers", h.followers)
		users.GET("/:id/following", h.following)
		users.GET("/:id/friends", h.friends)
		users.GET("/:id/mutual/:otherId", h.mutualFriends)
		users.POST("/:id/follow", auth, h.follow)
		users.DELETE("/:id/follow", auth, h.unfollow)
	}

	// Posts, their comments and likes
	posts := router.Group("/posts")
	{
		posts.GET("", h.globalFeed)
		posts.GET("/following", auth, h.followingFeed)
		posts.POST("", auth, h.createPost)
		posts.GET("/:id", h.getPost)
		posts.PUT("/:id", auth, h.updatePost)
		posts.DELETE("/:id", auth, h.deletePost)

		posts.POST("/:id/like", auth, h.togglePostLike)
		posts.GET("/:id/likes", optional, h.postLikes)

		posts.POST("/:id/save", auth, h.savePost)
		posts.DELETE("/:id/save", auth, h.unsavePost)

		posts.GET("/:id/comments", h.listComments)
		posts.GET("/:id/comments/count", h.commentCount)
		posts.POST("/:id/comments", auth, h.addComment)
	}

	comments := router.Group("/comments")
	{
		comments.PUT("/:id", auth, h.updateComment)
		comments.DELETE("/:id", auth, h.deleteComment)
		comments.POST("/:id/like", auth, h.toggleCommentLike)
		comments.GET("/:id/likes", optional, h.commentLikes)
		comments.GET("/:id/replies", h.listReplies)
		comments.POST("/:id/replies", auth, h.addReply)
	}

	notifications := router.Group("/api/notifications", auth)
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread", h.listUnread)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.PUT("/:id/read", h.markRead)
	}

	return router
}
