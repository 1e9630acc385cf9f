package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// statusOf maps the error taxonomy onto HTTP status codes
func statusOf(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", currentUser(c)),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// window reads page and size; without size the listing is unbounded
// unless fallback is set
func (h *handler) window(c *gin.Context, fallback int) (domain.Window, error) {
	w := domain.Window{Size: fallback}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return w, apperrors.NewInvalid("page", "must be a non-negative integer")
		}
		w.Page = page
		if w.Size == 0 {
			w.Size = h.DefaultPageSize
		}
	}
	if raw := c.Query("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return w, apperrors.NewInvalid("size", "must be a positive integer")
		}
		w.Size = size
	}
	if w.Size > h.MaxPageSize {
		w.Size = h.MaxPageSize
	}
	if w.Size > 0 && w.Page > math.MaxInt/w.Size {
		return w, apperrors.NewInvalid("page", "out of range")
	}
	return w, nil
}
