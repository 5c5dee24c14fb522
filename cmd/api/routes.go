package main

import (
	"database/sql"
	"net/http"
	"time"

	"dialin-bridge/internal/auth"
	"dialin-bridge/internal/config"
	"dialin-bridge/internal/httpapi"
	"dialin-bridge/internal/voice"
	"dialin-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, db *sql.DB, promRegistry *prometheus.Registry, webhook voice.WebhookHandler, api httpapi.Handlers, authManager *auth.Manager) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// Provider voice callbacks (signature-validated inside the handler).
	r.POST("/webhooks/sinch/voice", webhook.HandleVoiceEvent)

	r.POST("/api/login", auth.LoginHandler(authManager))

	// protected admin API
	apiGroup := r.Group("/api")
	apiGroup.Use(auth.RequireAccessToken(authManager))
	{
		apiGroup.POST("/conference", api.CreateConference)
		apiGroup.GET("/conferences", api.ListConferences)
		apiGroup.DELETE("/conference/:conference_id", api.DeleteConference)

		apiGroup.POST("/user", api.CreateUser)
		apiGroup.GET("/users", api.ListUsers)
		apiGroup.DELETE("/user/:pin", api.DeleteUser)
		apiGroup.PATCH("/user/:pin/external-id", api.UpdateUserExternalID)

		apiGroup.GET("/conferences-and-users", api.ListConferencesAndUsers)

		apiGroup.GET("/live-calls", api.ListLiveCalls)
		apiGroup.GET("/live-calls/:conference_id", api.ListConferenceLiveCalls)

		apiGroup.POST("/call/:call_id/mute", api.MuteCall)
		apiGroup.POST("/call/:call_id/unmute", api.UnmuteCall)
		apiGroup.POST("/call/:call_id/kick", api.KickCall)
	}

	// Optional admin UI bundle.
	if cfg.App.StaticDir != "" {
		r.Static("/admin", cfg.App.StaticDir)
	}
}
