package events

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/plugins/auth"
	"github.com/workdeck/planner/internal/plugins/calendar"
)

// Handler serves the event REST API. Request and response bodies use the
// wire form of calendar.RemoteEvent so the API is interchangeable with
// the Workdeck one.
type Handler struct {
	service EventService
}

// NewHandler creates a new events handler.
func NewHandler(service EventService) *Handler {
	return &Handler{service: service}
}

// ListEvents returns the caller's events overlapping a time range.
// GET /api/v1/events?from=...&to=...
func (h *Handler) ListEvents(c echo.Context) error {
	from, err := parseQueryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return err
	}

	evts, err := h.service.ListEvents(c.Request().Context(), auth.GetUserID(c), from, to)
	if err != nil {
		return err
	}

	data := make([]calendar.RemoteEvent, 0, len(evts))
	for i := range evts {
		data = append(data, evts[i].ToRemote())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":  data,
		"total": len(data),
	})
}

// CreateEvent stores a new event.
// POST /api/v1/events
func (h *Handler) CreateEvent(c echo.Context) error {
	var req calendar.EventPayload
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	start, err := parseBodyTime("startAt", req.StartAt)
	if err != nil {
		return err
	}
	end, err := parseBodyTime("endAt", req.EndAt)
	if err != nil {
		return err
	}

	evt, err := h.service.CreateEvent(c.Request().Context(), auth.GetUserID(c), CreateEventInput{
		Title:    req.Title,
		StartAt:  start,
		EndAt:    end,
		Color:    req.Color,
		Private:  req.Private,
		Billable: req.Billable,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, evt.ToRemote())
}

// UpdateEvent applies a partial update.
// PATCH /api/v1/events/:id
func (h *Handler) UpdateEvent(c echo.Context) error {
	var req calendar.EventPatch
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	input := UpdateEventInput{
		Title:    req.Title,
		Color:    req.Color,
		Private:  req.Private,
		Billable: req.Billable,
	}
	if req.StartAt != nil {
		t, err := parseBodyTime("startAt", *req.StartAt)
		if err != nil {
			return err
		}
		input.StartAt = &t
	}
	if req.EndAt != nil {
		t, err := parseBodyTime("endAt", *req.EndAt)
		if err != nil {
			return err
		}
		input.EndAt = &t
	}

	evt, err := h.service.UpdateEvent(c.Request().Context(), auth.GetUserID(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evt.ToRemote())
}

// DeleteEvent removes an event.
// DELETE /api/v1/events/:id
func (h *Handler) DeleteEvent(c echo.Context) error {
	if err := h.service.DeleteEvent(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CreateEventFromTask schedules a task.
// POST /api/v1/tasks/:id/events
func (h *Handler) CreateEventFromTask(c echo.Context) error {
	var req struct {
		Title           string `json:"title"`
		StartAt         string `json:"startAt"`
		DurationMinutes int    `json:"durationMinutes"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	start, err := parseBodyTime("startAt", req.StartAt)
	if err != nil {
		return err
	}

	evt, err := h.service.CreateEventFromTask(c.Request().Context(), auth.GetUserID(c),
		c.Param("id"), req.Title, start, req.DurationMinutes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, evt.ToRemote())
}

func parseQueryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, apperror.NewBadRequest("'" + name + "' is required")
	}
	t, err := calendar.ParseEventTime(raw)
	if err != nil {
		return time.Time{}, apperror.NewBadRequest("'" + name + "' is not a valid timestamp")
	}
	return t, nil
}

func parseBodyTime(field, raw string) (time.Time, error) {
	t, err := calendar.ParseEventTime(raw)
	if err != nil {
		return time.Time{}, apperror.NewValidation(field + " must be an ISO-8601 timestamp")
	}
	return t, nil
}
