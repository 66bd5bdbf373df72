package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/plugins/auth"
	"github.com/workdeck/planner/internal/plugins/calendar"
)

type mockAuthService struct{}

func (mockAuthService) ValidateSession(_ context.Context, token string) (*auth.Session, error) {
	if token != "api-token" {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	return &auth.Session{UserID: "u-1"}, nil
}

func newTestAPI(repo *mockEventRepo) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.Code, map[string]string{"message": appErr.Message})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
	RegisterRoutes(e, NewHandler(newTestService(repo)), mockAuthService{}, "workdeck_session")
	return e
}

func call(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer api-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAPI_RequiresToken(t *testing.T) {
	e := newTestAPI(&mockEventRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?from=2024-03-04T00:00:00Z&to=2024-03-05T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAPI_ListEvents(t *testing.T) {
	repo := &mockEventRepo{listRangeFn: func(_ context.Context, ownerID string, from, to time.Time) ([]Event, error) {
		if ownerID != "u-1" {
			t.Errorf("expected the caller's events, got owner %s", ownerID)
		}
		return []Event{{ID: "e1", OwnerID: ownerID, Title: "Planning", StartAt: nine, EndAt: ten}}, nil
	}}
	e := newTestAPI(repo)

	rec := call(e, http.MethodGet, "/api/v1/events?from=2024-03-04T00:00:00Z&to=2024-03-05T00:00:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data  []calendar.RemoteEvent `json:"data"`
		Total int                    `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 1 || body.Data[0].StartAt != "2024-03-04T09:00:00Z" {
		t.Errorf("unexpected body %+v", body)
	}

	if rec := call(e, http.MethodGet, "/api/v1/events?from=yesterday&to=2024-03-05T00:00:00Z", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad range, got %d", rec.Code)
	}
}

func TestAPI_CreateEvent(t *testing.T) {
	e := newTestAPI(&mockEventRepo{})

	rec := call(e, http.MethodPost, "/api/v1/events",
		`{"title":"Review","startAt":"2024-03-04T09:00:00Z","endAt":"04/03/2024 10:30:00+00:00","color":"#00AA00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created calendar.RemoteEvent
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" || created.EndAt != "2024-03-04T10:30:00Z" || created.Color != "#00aa00" {
		t.Errorf("unexpected event %+v", created)
	}

	rec = call(e, http.MethodPost, "/api/v1/events", `{"title":"Review","startAt":"soon","endAt":"2024-03-04T10:00:00Z"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a bad timestamp, got %d", rec.Code)
	}
}

func TestAPI_DeleteEvent(t *testing.T) {
	repo := &mockEventRepo{deleteFn: func(_ context.Context, ownerID, id string) (bool, error) {
		return id == "e1", nil
	}}
	e := newTestAPI(repo)

	if rec := call(e, http.MethodDelete, "/api/v1/events/e1", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := call(e, http.MethodDelete, "/api/v1/events/e2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPI_CreateEventFromTask(t *testing.T) {
	var stored *Event
	e := newTestAPI(&mockEventRepo{createFn: func(_ context.Context, evt *Event) error {
		stored = evt
		return nil
	}})

	rec := call(e, http.MethodPost, "/api/v1/tasks/t-4/events", `{"title":"","startAt":"2024-03-04T09:00:00Z","durationMinutes":45}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stored == nil || stored.TaskID == nil || *stored.TaskID != "t-4" || !stored.EndAt.Equal(nine.Add(45*time.Minute)) {
		t.Errorf("unexpected stored event %+v", stored)
	}
}
