package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/middleware"
	"github.com/workdeck/planner/internal/plugins/auth"
	"github.com/workdeck/planner/internal/sanitize"
)

// Handler processes HTTP requests for the calendar time grid. Every request
// resolves the caller's timeline for a day and drives it; responses carry
// the fresh snapshot so the client never computes layout itself.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new calendar Handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// timelineResponse is the JSON body returned by every timeline endpoint.
type timelineResponse struct {
	Outcome  *Outcome       `json:"outcome,omitempty"`
	Event    *CalendarEvent `json:"event,omitempty"`
	Open     *bool          `json:"open,omitempty"`
	Snapshot Snapshot       `json:"snapshot"`
}

// pointerRequest is the body of the pointer endpoints.
type pointerRequest struct {
	Date string  `json:"date" form:"date" query:"date"`
	Y    float64 `json:"y" form:"y"`
	Hit  Hit     `json:"hit"`
}

// Show renders the calendar page for ?date=YYYY-MM-DD (default today).
// HTMX requests get only the grid fragment.
// GET /calendar
func (h *Handler) Show(c echo.Context) error {
	tl, err := h.timeline(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	snap := tl.Snapshot()
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, TimelineGrid(snap))
	}
	return middleware.Render(c, http.StatusOK, TimelinePage(snap))
}

// Snapshot returns the render state of a day as JSON.
// GET /calendar/timeline
func (h *Handler) Snapshot(c echo.Context) error {
	tl, err := h.timeline(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timelineResponse{Snapshot: tl.Snapshot()})
}

// Reload drops the cached day and fetches it again from the event store.
// POST /calendar/reload
func (h *Handler) Reload(c echo.Context) error {
	day, err := h.day(c.QueryParam("date"))
	if err != nil {
		return err
	}
	userID := auth.GetUserID(c)
	// Let pending saves land first so the fresh load includes them.
	if tl, ok := h.registry.Lookup(userID, day); ok {
		tl.Wait()
	}
	h.registry.Reload(userID, day)
	return h.Snapshot(c)
}

// --- Pointer input ---

// PointerDown starts a draw, drag or resize.
// POST /calendar/pointer/down
func (h *Handler) PointerDown(c echo.Context) error {
	var req pointerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	if err := tl.PointerDown(req.Y, req.Hit); err != nil {
		return timelineError(err)
	}
	return h.respond(c, tl, timelineResponse{})
}

// PointerMove advances the active gesture.
// POST /calendar/pointer/move
func (h *Handler) PointerMove(c echo.Context) error {
	var req pointerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	tl.PointerMove(req.Y)
	return h.respond(c, tl, timelineResponse{})
}

// PointerUp finishes the active gesture. Drag and resize commits are pushed
// to the event store in the background.
// POST /calendar/pointer/up
func (h *Handler) PointerUp(c echo.Context) error {
	var req pointerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	outcome, _ := tl.PointerUp(req.Y)
	return h.respond(c, tl, timelineResponse{Outcome: &outcome})
}

// PointerLeave cancels a draw when the pointer leaves the grid.
// POST /calendar/pointer/leave
func (h *Handler) PointerLeave(c echo.Context) error {
	var req pointerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	tl.PointerLeave()
	return h.respond(c, tl, timelineResponse{})
}

// --- Draw confirmation ---

// ConfirmDraw creates the drawn event from the creation form.
// POST /calendar/draw/confirm
func (h *Handler) ConfirmDraw(c echo.Context) error {
	var req struct {
		Date     string `json:"date" form:"date"`
		Title    string `json:"title" form:"title"`
		Color    string `json:"color" form:"color"`
		Private  bool   `json:"private" form:"private"`
		Billable bool   `json:"billable" form:"billable"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	details, err := cleanDetails(req.Title, req.Color)
	if err != nil {
		return err
	}
	details.Private, details.Billable = req.Private, req.Billable

	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	ev, _, err := tl.ConfirmDraw(details)
	if err != nil {
		return timelineError(err)
	}
	return h.respond(c, tl, timelineResponse{Event: &ev})
}

// CancelDraw discards a finished draw whose form was dismissed.
// POST /calendar/draw/cancel
func (h *Handler) CancelDraw(c echo.Context) error {
	var req struct {
		Date string `json:"date" form:"date"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	if err := tl.CancelDraw(); err != nil {
		return timelineError(err)
	}
	return h.respond(c, tl, timelineResponse{})
}

// --- Task drops and event edits ---

// DropTask schedules a task dropped onto the grid at y.
// POST /calendar/drop-task
func (h *Handler) DropTask(c echo.Context) error {
	var req struct {
		Date            string  `json:"date"`
		Y               float64 `json:"y"`
		TaskID          string  `json:"task_id"`
		Title           string  `json:"title"`
		DurationMinutes int     `json:"duration_minutes"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if strings.TrimSpace(req.TaskID) == "" {
		return apperror.NewValidation("task_id is required")
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > 24*60 {
		return apperror.NewValidation("duration_minutes must be between 0 and 1440")
	}

	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	ev, _ := tl.DropTask(req.Y, TaskDrop{
		TaskID:          req.TaskID,
		Title:           sanitize.Text(req.Title),
		DurationMinutes: req.DurationMinutes,
	})
	return h.respond(c, tl, timelineResponse{Event: &ev})
}

// UpdateEvent applies an edit from the event form.
// PUT /calendar/events/:eid
func (h *Handler) UpdateEvent(c echo.Context) error {
	var req struct {
		Date string `json:"date"`
		EventEdit
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	edit := req.EventEdit
	if edit.Title != nil {
		title := sanitize.Text(*edit.Title)
		if title == "" {
			return apperror.NewValidation("event title is required")
		}
		edit.Title = &title
	}
	if edit.Color != nil {
		color, ok := sanitize.Color(*edit.Color)
		if !ok {
			return apperror.NewValidation("color must be #rrggbb or a palette name")
		}
		edit.Color = &color
	}

	tl, err := h.timeline(c, req.Date)
	if err != nil {
		return err
	}
	ev, _, err := tl.Edit(c.Param("eid"), edit)
	if err != nil {
		return timelineError(err)
	}
	return h.respond(c, tl, timelineResponse{Event: &ev})
}

// DeleteEvent removes an event, restoring it if the store refuses.
// DELETE /calendar/events/:eid
func (h *Handler) DeleteEvent(c echo.Context) error {
	tl, err := h.timeline(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	if _, err := tl.Delete(c.Param("eid")); err != nil {
		return timelineError(err)
	}
	return h.respond(c, tl, timelineResponse{})
}

// Click reports whether a click on an event should open its details.
// POST /calendar/events/:eid/click
func (h *Handler) Click(c echo.Context) error {
	tl, err := h.timeline(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	open := tl.Click(c.Param("eid"))
	return c.JSON(http.StatusOK, timelineResponse{Open: &open, Snapshot: tl.Snapshot()})
}

// ExportICS downloads the confirmed events of a day as iCalendar.
// GET /calendar/export.ics
func (h *Handler) ExportICS(c echo.Context) error {
	tl, err := h.timeline(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	day := tl.Day()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/calendar; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="workdeck-%s.ics"`, day.Format(DateLayout)))
	res.WriteHeader(http.StatusOK)
	return WriteICS(res, day, tl.Events(), time.Now())
}

// --- Helpers ---

// timeline resolves the caller's timeline for date (empty means today).
func (h *Handler) timeline(c echo.Context, date string) (*Timeline, error) {
	day, err := h.day(date)
	if err != nil {
		return nil, err
	}
	session := auth.GetSession(c)
	if session == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}

	tl, err := h.registry.Get(c.Request().Context(), Owner{UserID: session.UserID, Token: session.APIToken}, day)
	if err != nil {
		slog.Error("loading timeline",
			slog.String("user_id", session.UserID),
			slog.String("date", day.Format(DateLayout)),
			slog.Any("error", err),
		)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewBadGateway(err)
	}
	return tl, nil
}

func (h *Handler) day(date string) (time.Time, error) {
	if date == "" {
		return h.registry.Today(), nil
	}
	day, err := ParseDay(date, h.registry.Location())
	if err != nil {
		return time.Time{}, apperror.NewBadRequest("date must be YYYY-MM-DD")
	}
	return day, nil
}

// respond writes the fresh state of tl: the grid fragment for HTMX, a
// redirect back to the page for plain form posts and JSON otherwise.
func (h *Handler) respond(c echo.Context, tl *Timeline, body timelineResponse) error {
	body.Snapshot = tl.Snapshot()
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, TimelineGrid(body.Snapshot))
	}
	if isFormPost(c) {
		return c.Redirect(http.StatusSeeOther, "/calendar?date="+body.Snapshot.Date)
	}
	return c.JSON(http.StatusOK, body)
}

func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

// cleanDetails sanitizes the text fields of the event form.
func cleanDetails(title, color string) (EventDetails, error) {
	t := sanitize.Text(title)
	if t == "" {
		return EventDetails{}, apperror.NewValidation("event title is required")
	}
	col, ok := sanitize.Color(color)
	if !ok {
		return EventDetails{}, apperror.NewValidation("color must be #rrggbb or a palette name")
	}
	return EventDetails{Title: t, Color: col}, nil
}

// timelineError maps timeline errors to HTTP errors.
func timelineError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		return apperror.NewNotFound("event not found on this day")
	case errors.Is(err, ErrGestureActive):
		return apperror.NewConflict("another gesture is in progress")
	case errors.Is(err, ErrNoDraft):
		return apperror.NewConflict("no drawn event is awaiting confirmation")
	case errors.Is(err, ErrStillSaving):
		return apperror.NewConflict("event is still being saved")
	default:
		return apperror.NewBadRequest(err.Error())
	}
}
