package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

// ============================================================================
// Feeds and posts
// ============================================================================

func (h *handler) globalFeed(c *gin.Context) {
	w, err := h.window(c, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	entries, err := h.Feed.Global(c.Request.Context(), w)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) followingFeed(c *gin.Context) {
	w, err := h.window(c, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	entries, err := h.Feed.Following(c.Request.Context(), currentUser(c), w)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) postsByAuthor(c *gin.Context) {
	w, err := h.window(c, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	posts, err := h.Content.PostsByAuthor(c.Request.Context(), c.Param("id"), w)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *handler) createPost(c *gin.Context) {
	var in domain.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := h.Content.CreatePost(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handler) getPost(c *gin.Context) {
	p, err := h.Content.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) updatePost(c *gin.Context) {
	var in domain.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := h.Content.UpdatePost(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) deletePost(c *gin.Context) {
	if err := h.Content.DeletePost(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Saved posts
// ============================================================================

func (h *handler) savePost(c *gin.Context) {
	if err := h.Content.SavePost(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (h *handler) unsavePost(c *gin.Context) {
	if err := h.Content.UnsavePost(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": false})
}

func (h *handler) savedPosts(c *gin.Context) {
	posts, err := h.Content.SavedPosts(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// ============================================================================
// Likes
// ============================================================================

type likesResponse struct {
	domain.LikeState
	Likes []domain.Like `json:"likes"`
}

func (h *handler) togglePostLike(c *gin.Context) {
	h.toggle(c, domain.PostTarget(c.Param("id")))
}

func (h *handler) toggleCommentLike(c *gin.Context) {
	h.toggle(c, domain.CommentTarget(c.Param("id")))
}

func (h *handler) postLikes(c *gin.Context) {
	h.likes(c, domain.PostTarget(c.Param("id")))
}

func (h *handler) commentLikes(c *gin.Context) {
	h.likes(c, domain.CommentTarget(c.Param("id")))
}

func (h *handler) toggle(c *gin.Context, target domain.Target) {
	state, err := h.Likes.Toggle(c.Request.Context(), currentUser(c), target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handler) likes(c *gin.Context, target domain.Target) {
	ctx := c.Request.Context()
	state, err := h.Likes.State(ctx, currentUser(c), target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	likes, err := h.Likes.Likes(ctx, target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, likesResponse{LikeState: state, Likes: likes})
}

// ============================================================================
// Comments and replies
// ============================================================================

type textRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *handler) listComments(c *gin.Context) {
	comments, err := h.Content.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *handler) commentCount(c *gin.Context) {
	n, err := h.Content.CommentCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *handler) addComment(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	comment, err := h.Content.AddComment(c.Request.Context(), currentUser(c), c.Param("id"), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *handler) updateComment(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	comment, err := h.Content.UpdateComment(c.Request.Context(), currentUser(c), c.Param("id"), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *handler) deleteComment(c *gin.Context) {
	if err := h.Content.DeleteComment(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listReplies(c *gin.Context) {
	replies, err := h.Content.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, replies)
}

func (h *handler) addReply(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	reply, err := h.Content.AddReply(c.Request.Context(), currentUser(c), c.Param("id"), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}
