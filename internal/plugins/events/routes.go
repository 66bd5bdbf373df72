package events

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/middleware"
	"github.com/workdeck/planner/internal/plugins/auth"
)

// RegisterRoutes adds the event REST API under /api/v1. All routes require
// a session (cookie or bearer token) and are rate limited per client IP.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService, cookieName string) {
	v1 := e.Group("/api/v1",
		auth.RequireAuth(authSvc, cookieName),
		middleware.RateLimit(300, time.Minute),
	)

	v1.GET("/events", h.ListEvents)
	v1.POST("/events", h.CreateEvent)
	v1.PATCH("/events/:id", h.UpdateEvent)
	v1.DELETE("/events/:id", h.DeleteEvent)
	v1.POST("/tasks/:id/events", h.CreateEventFromTask)
}
