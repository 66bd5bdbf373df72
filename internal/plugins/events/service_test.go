package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/plugins/calendar"
)

// --- Mock Repository ---

// mockEventRepo implements EventRepository for testing.
type mockEventRepo struct {
	createFn    func(ctx context.Context, evt *Event) error
	getByIDFn   func(ctx context.Context, ownerID, id string) (*Event, error)
	updateFn    func(ctx context.Context, evt *Event) error
	deleteFn    func(ctx context.Context, ownerID, id string) (bool, error)
	listRangeFn func(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error)
}

func (m *mockEventRepo) Create(ctx context.Context, evt *Event) error {
	if m.createFn != nil {
		return m.createFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) GetByID(ctx context.Context, ownerID, id string) (*Event, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, ownerID, id)
	}
	return nil, nil
}

func (m *mockEventRepo) Update(ctx context.Context, evt *Event) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return false, nil
}

func (m *mockEventRepo) ListRange(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error) {
	if m.listRangeFn != nil {
		return m.listRangeFn(ctx, ownerID, from, to)
	}
	return nil, nil
}

func newTestService(repo *mockEventRepo) *eventService {
	return &eventService{repo: repo, now: func() time.Time {
		return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	}}
}

var (
	nine = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	ten  = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
)

// --- Create ---

func TestCreateEvent_SanitizesAndStores(t *testing.T) {
	var stored *Event
	svc := newTestService(&mockEventRepo{createFn: func(_ context.Context, evt *Event) error {
		stored = evt
		return nil
	}})

	evt, err := svc.CreateEvent(context.Background(), "u-1", CreateEventInput{
		Title:   "<b>Planning</b>",
		StartAt: nine,
		EndAt:   ten,
		Color:   "#AABBCC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.ID == "" || stored.OwnerID != "u-1" {
		t.Fatalf("unexpected stored event %+v", stored)
	}
	if evt.Title != "Planning" || evt.Color != "#aabbcc" {
		t.Errorf("expected sanitized fields, got title=%q color=%q", evt.Title, evt.Color)
	}
	if evt.TaskID != nil {
		t.Errorf("expected no task id, got %v", *evt.TaskID)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateEventInput
	}{
		{"missing title", CreateEventInput{Title: "  ", StartAt: nine, EndAt: ten}},
		{"markup only title", CreateEventInput{Title: "<script>x</script>", StartAt: nine, EndAt: ten}},
		{"end before start", CreateEventInput{Title: "x", StartAt: ten, EndAt: nine}},
		{"zero length", CreateEventInput{Title: "x", StartAt: nine, EndAt: nine}},
		{"missing times", CreateEventInput{Title: "x"}},
		{"too long", CreateEventInput{Title: "x", StartAt: nine, EndAt: nine.Add(8 * 24 * time.Hour)}},
		{"bad color", CreateEventInput{Title: "x", StartAt: nine, EndAt: ten, Color: "url(evil)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockEventRepo{createFn: func(context.Context, *Event) error {
				t.Fatal("repository must not be called")
				return nil
			}})
			_, err := svc.CreateEvent(context.Background(), "u-1", tt.input)
			assertAppError(t, err, 422)
		})
	}
}

func TestCreateEvent_RepoError(t *testing.T) {
	svc := newTestService(&mockEventRepo{createFn: func(context.Context, *Event) error {
		return errors.New("connection reset")
	}})

	_, err := svc.CreateEvent(context.Background(), "u-1", CreateEventInput{Title: "x", StartAt: nine, EndAt: ten})
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("storage errors must not be presented as client errors, got %v", appErr)
	}
}

func TestCreateEventFromTask(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	evt, err := svc.CreateEventFromTask(context.Background(), "u-1", "t-9", "", nine, 45)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.TaskID == nil || *evt.TaskID != "t-9" {
		t.Errorf("expected task id t-9, got %v", evt.TaskID)
	}
	if evt.Title != "Task t-9" {
		t.Errorf("expected fallback title, got %q", evt.Title)
	}
	if got := evt.EndAt.Sub(evt.StartAt); got != 45*time.Minute {
		t.Errorf("expected 45m duration, got %v", got)
	}
}

func TestCreateEventFromTask_RequiresDuration(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	_, err := svc.CreateEventFromTask(context.Background(), "u-1", "t-9", "Write", nine, 0)
	assertAppError(t, err, 422)
}

// --- Update / Delete ---

func TestUpdateEvent_Partial(t *testing.T) {
	existing := &Event{ID: "e1", OwnerID: "u-1", Title: "Old", StartAt: nine, EndAt: ten, Color: "blue"}
	var saved *Event
	svc := newTestService(&mockEventRepo{
		getByIDFn: func(_ context.Context, ownerID, id string) (*Event, error) {
			if ownerID != "u-1" || id != "e1" {
				return nil, nil
			}
			cp := *existing
			return &cp, nil
		},
		updateFn: func(_ context.Context, evt *Event) error {
			saved = evt
			return nil
		},
	})

	newEnd := ten.Add(30 * time.Minute)
	private := true
	evt, err := svc.UpdateEvent(context.Background(), "u-1", "e1", UpdateEventInput{EndAt: &newEnd, Private: &private})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || !saved.EndAt.Equal(newEnd) || !saved.Private {
		t.Errorf("unexpected saved event %+v", saved)
	}
	if evt.Title != "Old" || evt.Color != "blue" {
		t.Errorf("untouched fields changed: %+v", evt)
	}
}

func TestUpdateEvent_OtherOwnerIsNotFound(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	title := "x"
	_, err := svc.UpdateEvent(context.Background(), "u-2", "e1", UpdateEventInput{Title: &title})
	assertAppError(t, err, 404)
}

func TestUpdateEvent_RejectsInvertedSpan(t *testing.T) {
	svc := newTestService(&mockEventRepo{
		getByIDFn: func(context.Context, string, string) (*Event, error) {
			return &Event{ID: "e1", OwnerID: "u-1", Title: "x", StartAt: nine, EndAt: ten}, nil
		},
		updateFn: func(context.Context, *Event) error {
			t.Fatal("repository must not be called")
			return nil
		},
	})

	start := ten.Add(time.Hour)
	_, err := svc.UpdateEvent(context.Background(), "u-1", "e1", UpdateEventInput{StartAt: &start})
	assertAppError(t, err, 422)
}

func TestDeleteEvent_Missing(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	err := svc.DeleteEvent(context.Background(), "u-1", "gone")
	assertAppError(t, err, 404)
}

// --- List ---

func TestListEvents_RangeValidation(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	_, err := svc.ListEvents(context.Background(), "u-1", ten, nine)
	assertAppError(t, err, 422)

	_, err = svc.ListEvents(context.Background(), "u-1", nine, nine.AddDate(0, 3, 0))
	assertAppError(t, err, 422)
}

func TestListEvents_NeverNil(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	evts, err := svc.ListEvents(context.Background(), "u-1", nine, ten)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evts == nil {
		t.Error("expected empty slice, got nil")
	}
}

// --- LocalAPI ---

func TestLocalAPI_RoundTripsWireFormat(t *testing.T) {
	var stored *Event
	repo := &mockEventRepo{
		createFn: func(_ context.Context, evt *Event) error {
			stored = evt
			return nil
		},
		listRangeFn: func(_ context.Context, ownerID string, _, _ time.Time) ([]Event, error) {
			if ownerID != "u-1" || stored == nil {
				return nil, nil
			}
			return []Event{*stored}, nil
		},
	}
	api := NewLocalAPI(NewEventService(repo), "u-1")

	created, err := api.CreateEvent(context.Background(), calendar.EventPayload{
		Title:   "Focus",
		StartAt: "2024-03-04T13:30:00Z",
		EndAt:   "2024-03-04T14:15:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" || created.StartAt != "2024-03-04T13:30:00Z" {
		t.Errorf("unexpected created event %+v", created)
	}

	listed, err := api.ListEvents(context.Background(), nine, nine.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID || listed[0].EndAt != "2024-03-04T14:15:00Z" {
		t.Errorf("unexpected list %+v", listed)
	}
}

func TestLocalAPI_BadTimestamp(t *testing.T) {
	api := NewLocalAPI(NewEventService(&mockEventRepo{}), "u-1")

	_, err := api.CreateEvent(context.Background(), calendar.EventPayload{Title: "x", StartAt: "soon", EndAt: "later"})
	assertAppError(t, err, 422)
}

func assertAppError(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %d, got %d (%s)", code, appErr.Code, appErr.Message)
	}
}
