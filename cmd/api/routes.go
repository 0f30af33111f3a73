package main

import (
	"officiating-platform/internal/audit"
	"officiating-platform/internal/auth"
	"officiating-platform/internal/authz"
	"officiating-platform/internal/httpapi"
	"officiating-platform/internal/metrics"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authManager *auth.Manager, guard *authz.Guard, recorder *audit.Recorder) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := httpapi.Handlers{Auth: authManager}

	// Token issuance is public; everything else requires an access token.
	r.POST("/v1/auth/login", h.Login)

	// Authentication failures are audited; critical on admin paths.
	authFailure := func(c *gin.Context, reason string) {
		recorder.Record(audit.Record{
			EventType:     audit.EventTokenRejected,
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
			RequestPath:   c.Request.URL.Path,
			RequestMethod: c.Request.Method,
			Severity:      audit.Classify(audit.EventTokenRejected, 401, c.Request.URL.Path),
			Success:       false,
			ErrorMessage:  reason,
		})
	}

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager, authFailure))
	{
		v1.GET("/me", h.Me)

		// GAMES
		games := v1.Group("/games")
		{
			games.POST("", guard.RequireAction(authz.KindGame, "create"), h.CreateGame)
			games.GET("/:id", guard.RequireAction(authz.KindGame, "view"), h.GetGame)
			// Deleting requires both view and delete; evaluation is ordered
			// and stops at the first denial.
			games.DELETE("/:id", guard.Require(authz.KindGame, []string{"view", "delete"}), h.DeleteGame)
		}

		// ASSIGNMENTS
		assignments := v1.Group("/assignments")
		{
			assignments.GET("/:id", guard.RequireAction(authz.KindAssignment, "view"), h.GetAssignment)
			assignments.PUT("/:id",
				guard.RequireAction(authz.KindAssignment, "update",
					authz.WithForbiddenMessage("You cannot modify this assignment"),
				),
				h.UpdateAssignment)
		}

		// ADMIN
		admin := v1.Group("/admin")
		{
			admin.GET("/users/:id", guard.RequireAction(authz.KindUser, "view"), h.GetUser)
		}
	}
}
