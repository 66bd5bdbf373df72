package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/middleware"
	"github.com/workdeck/planner/internal/plugins/auth"
	"github.com/workdeck/planner/internal/plugins/calendar"
	"github.com/workdeck/planner/internal/plugins/events"
	"github.com/workdeck/planner/internal/templates/layouts"
	"github.com/workdeck/planner/internal/workdeck"
)

// sweepInterval is how often idle timelines are dropped from memory.
const sweepInterval = time.Minute

// RegisterRoutes sets up all application routes. It wires each plugin's
// repository, service and handler, then lets the plugin mount its routes.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here. The sweeper for idle
// timelines runs until ctx is done.
func (a *App) RegisterRoutes(ctx context.Context) {
	e := a.Echo
	cookie := a.Config.Auth.CookieName

	// --- Auth (sessions issued by the Workdeck login service) ---
	authService := auth.NewAuthService(a.Redis, a.Config.Auth.SessionTTL)

	// --- Events (local event store and its REST API) ---
	eventRepo := events.NewEventRepository(a.DB)
	eventService := events.NewEventService(eventRepo)
	events.RegisterRoutes(e, events.NewHandler(eventService), authService, cookie)

	// --- Calendar (time grid) ---
	a.Timelines = calendar.NewRegistry(
		a.eventAPIFactory(eventService),
		calendar.TimelineOptions{
			Scale: calendar.TimeScale{
				PixelsPerHour: a.Config.Timeline.PixelsPerHour,
				StartHour:     a.Config.Timeline.StartHour,
				EndHour:       a.Config.Timeline.EndHour,
			},
			Timeout: a.Config.Workdeck.Timeout,
			Logger:  slog.Default().With(slog.String("plugin", "calendar")),
		},
		a.Config.Timeline.Location(),
		a.Config.Timeline.IdleTTL,
	)
	go a.Timelines.Run(ctx, sweepInterval)
	calendar.RegisterRoutes(e, calendar.NewHandler(a.Timelines), authService, cookie)

	// Layout data for every rendered page.
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
		if s := auth.GetSession(c); s != nil {
			ctx = layouts.SetIsAuthenticated(ctx, true)
			ctx = layouts.SetUserID(ctx, s.UserID)
			ctx = layouts.SetUserName(ctx, s.Name)
		}
		return ctx
	}

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/calendar")
	})

	// Health check for the container orchestrator.
	e.GET("/healthz", a.healthz)
}

// eventAPIFactory picks the event store each timeline talks to: the
// Workdeck REST API with the user's token when configured, otherwise the
// local MariaDB store scoped to the user.
func (a *App) eventAPIFactory(local events.EventService) calendar.APIFactory {
	if a.Config.Workdeck.IsRemote() {
		logger := slog.Default().With(slog.String("client", "workdeck"))
		return func(owner calendar.Owner) calendar.EventAPI {
			return workdeck.NewClient(a.Config.Workdeck.APIURL, owner.Token, a.Config.Workdeck.Timeout, logger)
		}
	}
	return func(owner calendar.Owner) calendar.EventAPI {
		return events.NewLocalAPI(local, owner.UserID)
	}
}

// healthz reports 503 when MariaDB or Redis cannot be reached.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusOK {
		status["status"] = "ok"
	} else {
		status["status"] = "degraded"
	}
	return c.JSON(code, status)
}
