package calendar

import (
	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/plugins/auth"
)

// RegisterRoutes sets up all calendar time grid routes. Every route
// requires a session; timelines are per user.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService, cookieName string) {
	g := e.Group("/calendar", auth.RequireAuth(authSvc, cookieName))

	// Views.
	g.GET("", h.Show)
	g.GET("/timeline", h.Snapshot)
	g.GET("/export.ics", h.ExportICS)
	g.POST("/reload", h.Reload)

	// Pointer gestures.
	g.POST("/pointer/down", h.PointerDown)
	g.POST("/pointer/move", h.PointerMove)
	g.POST("/pointer/up", h.PointerUp)
	g.POST("/pointer/leave", h.PointerLeave)

	// Creation form of a finished draw.
	g.POST("/draw/confirm", h.ConfirmDraw)
	g.POST("/draw/cancel", h.CancelDraw)

	// Task drops and event edits.
	g.POST("/drop-task", h.DropTask)
	g.PUT("/events/:eid", h.UpdateEvent)
	g.DELETE("/events/:eid", h.DeleteEvent)
	g.POST("/events/:eid/click", h.Click)
}
