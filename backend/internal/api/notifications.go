package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

func (h *handler) listNotifications(c *gin.Context) {
	out, err := h.Notifications.List(c.Request.Context(), currentUser(c), false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) listUnread(c *gin.Context) {
	out, err := h.Notifications.List(c.Request.Context(), currentUser(c), true)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) unreadCount(c *gin.Context) {
	n, err := h.Notifications.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// markRead only lets the recipient mark a notification
func (h *handler) markRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	userID := currentUser(c)

	n, err := h.Notifications.Get(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if n.UserID != userID {
		h.respondError(c, apperrors.NewForbidden(userID, "notification "+id))
		return
	}
	if err := h.Notifications.MarkRead(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
