package events

import (
	"net/http"
	"time"

	"call-desk/pkg/logger"

	"github.com/gin-gonic/gin"
)

const sseEventName = "call"

// StreamHandler serves GET /calls/events as Server-Sent Events. Each message
// is a calls.Change; clients refetch the list when one arrives.
func StreamHandler(sub Subscriber, keepAlive time.Duration) gin.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		changes, err := sub.Subscribe(ctx)
		if err != nil {
			logger.FromGin(c).Error("call event subscribe failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
			return
		}

		// Streams outlive the server write timeout.
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ch, ok := <-changes:
				if !ok {
					return
				}
				c.SSEvent(sseEventName, ch)
				c.Writer.Flush()
			case <-ticker.C:
				c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
				c.Writer.Flush()
			}
		}
	}
}
