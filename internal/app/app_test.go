package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/config"
)

func newTestApp() *App {
	return &App{Config: &config.Config{Env: "test"}, Echo: echo.New()}
}

func runErrorHandler(a *App, err error, path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	a.errorHandler(err, a.Echo.NewContext(req, rec))
	return rec
}

func TestErrorHandler_APIGetsJSON(t *testing.T) {
	rec := runErrorHandler(newTestApp(), apperror.NewValidation("title is required"), "/api/v1/events", false)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"title is required"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	rec := runErrorHandler(newTestApp(), errors.New("dial tcp 10.0.0.3:3306: refused"), "/api/v1/events", false)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestErrorHandler_TimelineScriptGetsJSON(t *testing.T) {
	rec := runErrorHandler(newTestApp(), apperror.NewConflict("another gesture is in progress"), "/calendar/pointer/down", true)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("expected JSON, got %s", ct)
	}
}

func TestErrorHandler_Unauthorized(t *testing.T) {
	a := newTestApp()
	err := apperror.NewUnauthorized("authentication required")

	rec := runErrorHandler(a, err, "/calendar", false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("browser: expected redirect to /login, got %d", rec.Code)
	}

	rec = runErrorHandler(a, err, "/calendar/pointer/up", true)
	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("script: expected HX-Redirect, got %d", rec.Code)
	}
}

func TestErrorHandler_BrowserGetsPage(t *testing.T) {
	rec := runErrorHandler(newTestApp(), echo.NewHTTPError(http.StatusNotFound, "no such page"), "/nowhere", false)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>404</h1>") || !strings.Contains(body, "no such page") {
		t.Errorf("expected the error page, got %s", body)
	}
}
