// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires the auth, events and calendar plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/config"
	"github.com/workdeck/planner/internal/middleware"
	"github.com/workdeck/planner/internal/plugins/calendar"
	"github.com/workdeck/planner/internal/templates/layouts"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis is the Redis client holding Workdeck sessions.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Timelines caches the per-user day timelines. Set by RegisterRoutes.
	Timelines *calendar.Registry
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must return the client behind the reverse proxy; the API
	// rate limiter keys on it.
	proxies := cfg.HTTP.TrustedProxies
	if len(proxies) == 0 {
		proxies = middleware.DefaultTrustedProxies
	}
	middleware.TrustedProxies(e, proxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve static files (stylesheet and the timeline script).
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options.
	a.Echo.Use(middleware.SecurityHeaders(a.Config.HTTP.HSTS))

	// CORS -- only the /api/v1 event store is reachable cross-origin.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.HTTP.CORSOrigins,
		AllowCredentials: true,
	}))

	// CSRF -- double-submit cookie pattern on all state-changing requests.
	a.Echo.Use(middleware.CSRF())
}

// errorHandler is the custom Echo error handler. AppErrors carry their own
// status and safe message; echo's router errors keep theirs; anything else
// is logged and reported as a generic 500.
//
// API and timeline-script requests get JSON, browsers an error page. A 401
// sends the browser to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code, message := a.resolveError(err, c)

	switch {
	case code == http.StatusUnauthorized && isHTMXRequest(c):
		c.Response().Header().Set("HX-Redirect", "/login")
		c.NoContent(http.StatusNoContent)
	case isAPIRequest(c) || isHTMXRequest(c):
		c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
	case code == http.StatusUnauthorized:
		c.Redirect(http.StatusSeeOther, "/login")
	default:
		middleware.Render(c, code, layouts.ErrorPage(code, message))
	}
}

// resolveError derives the response status and client-safe message of err
// and logs what the client will not see.
func (a *App) resolveError(err error, c echo.Context) (int, string) {
	path := c.Request().URL.Path

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", path),
			)
		}
		return apperror.SafeCode(err), apperror.SafeMessage(err)
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if msg, ok := echoErr.Message.(string); ok {
			return echoErr.Code, msg
		}
		return echoErr.Code, http.StatusText(echoErr.Code)
	}

	slog.Error("unhandled error", slog.Any("error", err), slog.String("path", path))
	return apperror.SafeCode(err), apperror.SafeMessage(err)
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// isHTMXRequest returns true if the request was sent by the timeline script.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting planner server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.Bool("remote_events", a.Config.Workdeck.IsRemote()),
	)
	return a.Echo.Start(addr)
}

// Shutdown stops accepting requests, waits for in-flight ones, then waits
// for pending event saves so none is lost on exit.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Timelines != nil {
		a.Timelines.Drain()
	}
	return err
}
