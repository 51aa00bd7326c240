package httpapi

import (
	"errors"
	"net/http"

	"call-desk/internal/auth"
	"call-desk/internal/calls"
	"call-desk/internal/reporting"
	"call-desk/internal/staff"
	"call-desk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the staff-facing API handlers. They stay thin: parse,
// call the service, map errors, return JSON.
type Handlers struct {
	Calls *calls.Service
	Stats *reporting.Service
	Staff *staff.Directory
}

const errInvalidBody = "invalid request body"

// ListStaff serves GET /staff.
func (h Handlers) ListStaff(c *gin.Context) {
	profiles := []staff.Profile{}
	if h.Staff != nil {
		profiles = h.Staff.All()
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// actor identifies the caller for audit. Without bearer auth (local mode)
// the optional user_id from the request body stands in.
func actor(c *gin.Context, fallbackUserID string) calls.Actor {
	ctx := c.Request.Context()
	a := calls.Actor{IP: c.ClientIP()}
	if uid, err := auth.UserID(ctx); err == nil {
		a.UserID = uid
		a.Role, _ = auth.Role(ctx)
		return a
	}
	a.UserID = fallbackUserID
	return a
}

// abortWithError maps service errors onto the API status codes. Store
// failures are logged with the real cause and answered with msg.
func abortWithError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, calls.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, calls.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logger.FromGin(c).Error(msg, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
