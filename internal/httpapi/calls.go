package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"call-desk/internal/auth"
	"call-desk/internal/calls"
	"call-desk/internal/reporting"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// ListCalls serves GET /calls. count_only=true answers {count} with the
// number of open calls and ignores every other parameter.
func (h Handlers) ListCalls(c *gin.Context) {
	ctx := c.Request.Context()

	if countOnly, _ := cast.ToBoolE(c.Query("count_only")); countOnly {
		n, err := h.Calls.CountOpen(ctx)
		if err != nil {
			abortWithError(c, err, "failed to count calls")
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
		return
	}

	q := calls.ListQuery{
		Status:     c.Query("status"),
		AssignedTo: c.Query("assigned_to"),
		Time:       c.Query("time"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		if n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be positive"})
			return
		}
		q.Limit = n
	}

	rows, err := h.Calls.List(ctx, q)
	if err != nil {
		abortWithError(c, err, "failed to list calls")
		return
	}
	if rows == nil {
		rows = []calls.CallWithDetails{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows, "count": len(rows)})
}

// CreateCall serves POST /calls.
func (h Handlers) CreateCall(c *gin.Context) {
	var req calls.NewCall
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	out, err := h.Calls.Create(c.Request.Context(), actor(c, ""), req)
	if err != nil {
		abortWithError(c, err, "failed to create call")
		return
	}
	c.JSON(http.StatusCreated, out)
}

type updateCallRequest struct {
	ID            string               `json:"id"`
	Status        *calls.TriageStatus  `json:"status"`
	AssignedTo    calls.OptionalString `json:"assigned_to"`
	Notes         *string              `json:"notes"`
	CallbackNotes *string              `json:"callback_notes"`

	// UserID names the acting staff member when bearer auth is off.
	UserID string `json:"user_id"`
}

// UpdateCall serves PATCH /calls.
func (h Handlers) UpdateCall(c *gin.Context) {
	var req updateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, calls.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ID is required"})
		return
	}

	out, err := h.Calls.Update(c.Request.Context(), actor(c, req.UserID), req.ID, calls.Patch{
		Status:        req.Status,
		AssignedTo:    req.AssignedTo,
		Notes:         req.Notes,
		CallbackNotes: req.CallbackNotes,
	})
	if err != nil {
		abortWithError(c, err, "failed to update call")
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteCall serves DELETE /calls?id=.
func (h Handlers) DeleteCall(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ID is required"})
		return
	}
	if err := h.Calls.Delete(c.Request.Context(), actor(c, c.Query("user_id")), id); err != nil {
		abortWithError(c, err, "failed to delete call")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CallStats serves GET /calls/stats. me defaults to the authenticated user.
func (h Handlers) CallStats(c *gin.Context) {
	req := reporting.StatsRequest{
		Time: c.Query("time"),
		From: c.Query("from"),
		To:   c.Query("to"),
		Me:   strings.TrimSpace(c.Query("me")),
	}
	if req.Me == "" {
		req.Me, _ = auth.UserID(c.Request.Context())
	}
	out, err := h.Stats.Stats(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, out)
}
