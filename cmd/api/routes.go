package main

import (
	"database/sql"
	"net/http"
	"time"

	"call-desk/internal/auth"
	"call-desk/internal/calls"
	"call-desk/internal/events"
	"call-desk/internal/httpapi"
	"call-desk/internal/metrics"
	"call-desk/internal/rbac"
	"call-desk/internal/reporting"
	"call-desk/internal/routing"
	"call-desk/internal/staff"
	"call-desk/internal/telephony"
	"call-desk/pkg/logger"
	"call-desk/pkg/utils"

	"github.com/gin-gonic/gin"
)

// routeDeps is everything the router needs, assembled in main.
type routeDeps struct {
	db      *sql.DB
	auth    *auth.Manager // nil leaves the staff API open
	metrics *metrics.Metrics
	bus     events.Subscriber

	calls *calls.Service
	stats *reporting.Service
	staff *staff.Directory

	webhooks  *telephony.WebhookHandler
	signature gin.HandlerFunc // nil when signature validation is off
	proxy     *telephony.AudioProxy
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
				logger.FromGin(c).Error("health check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	// Provider webhooks (public, optionally signature-checked).
	hooks := r.Group("/webhooks")
	hooks.Use(clientIPContext())
	if d.signature != nil {
		hooks.Use(d.signature)
	}
	{
		hooks.POST("/call-start", d.webhooks.CallStart)
		hooks.POST("/call-status", d.webhooks.CallStatus)
		hooks.POST("/recording", d.webhooks.Recording)
	}

	// Audio elements in the browser cannot send bearer tokens.
	r.GET("/audio-proxy", d.proxy.Serve)

	// staff API
	h := httpapi.Handlers{Calls: d.calls, Stats: d.stats, Staff: d.staff}
	api := r.Group("")
	if d.auth != nil {
		api.Use(auth.RequireAccessToken(d.auth))
		api.Use(rbac.RequireAnyRole(rbac.RoleStaff, rbac.RoleAdmin))
	}
	{
		api.GET("/staff", h.ListStaff)

		callsGroup := api.Group("/calls")
		callsGroup.GET("", h.ListCalls)
		callsGroup.POST("", h.CreateCall)
		callsGroup.PATCH("", h.UpdateCall)
		callsGroup.DELETE("", h.DeleteCall)
		callsGroup.GET("/stats", h.CallStats)
		if d.bus != nil {
			callsGroup.GET("/events", events.StreamHandler(d.bus, 25*time.Second))
		}
	}
}

// clientIPContext exposes the caller address to services that never see gin,
// so system-driven audit rows still carry an IP.
func clientIPContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(routing.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
