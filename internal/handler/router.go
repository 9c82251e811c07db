package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/identity"
	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/models"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth        *AuthHandler
	Resources   *ResourceHandler
	Assignments *AssignmentHandler
	Events      *EventHandler
	Leaderboard *LeaderboardHandler
	Chat        *ChatHandler
	Club        *ClubHandler
	Dashboard   *DashboardHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under the configured prefix with JWT and role
// checks. Admin-only mutations guard content management; submission,
// attendance and chat are open to every authenticated member.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, provider identity.Provider) {
	if prefix == "" {
		prefix = "/api/v1"
	}

	r.GET("/metrics", h.Metrics.Prometheus)

	// File downloads authenticate through the signed token in the query
	// string, not through a JWT header.
	r.GET("/files/submissions", h.Assignments.Download)

	v1 := r.Group(prefix)

	auth := v1.Group("/auth")
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/signin", h.Auth.SignIn)

	private := v1.Group("")
	private.Use(middleware.JWT(provider))

	private.POST("/auth/signout", h.Auth.SignOut)
	private.GET("/auth/me", h.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)
	member := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	resources := private.Group("/resources")
	resources.GET("", member, h.Resources.List)
	resources.POST("", admin, h.Resources.Create)
	resources.PUT("/:id", admin, h.Resources.Update)
	resources.DELETE("/:id", admin, h.Resources.Delete)

	assignments := private.Group("/assignments")
	assignments.GET("", member, h.Assignments.List)
	assignments.GET("/pending", member, h.Assignments.Pending)
	assignments.POST("", admin, h.Assignments.Create)
	assignments.PUT("/:id", admin, h.Assignments.Update)
	assignments.DELETE("/:id", admin, h.Assignments.Delete)
	assignments.POST("/:id/submissions", member, h.Assignments.Submit)
	assignments.POST("/:id/submissions/file", member, h.Assignments.SubmitFile)
	assignments.POST("/:id/submissions/:studentId/grade", admin, h.Assignments.Grade)

	events := private.Group("/events")
	events.GET("", member, h.Events.List)
	events.POST("", admin, h.Events.Create)
	events.PUT("/:id", admin, h.Events.Update)
	events.DELETE("/:id", admin, h.Events.Delete)
	events.POST("/:id/attend", member, h.Events.Attend)

	leaderboard := private.Group("/leaderboard")
	leaderboard.GET("", member, h.Leaderboard.List)
	leaderboard.GET("/export", admin, h.Leaderboard.Export)
	leaderboard.PUT("/:id/points", admin, h.Leaderboard.UpdatePoints)

	chat := private.Group("/chat")
	chat.GET("/messages", member, h.Chat.List)
	chat.POST("/messages", member, h.Chat.Send)
	chat.GET("/stream", member, h.Chat.Stream)

	club := private.Group("/club")
	club.GET("", member, h.Club.Get)
	club.PUT("", admin, h.Club.Update)

	private.POST("/sync/refresh", member, h.Dashboard.Refresh)
	private.POST("/sync/refresh/:store", member, h.Dashboard.Schedule)
	private.GET("/dashboard", member, h.Dashboard.Dashboard)
}
