package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"
)

// --- Mock EventAPI ---

type mockEventAPI struct {
	listFn     func(ctx context.Context, from, to time.Time) ([]RemoteEvent, error)
	createFn   func(ctx context.Context, payload EventPayload) (*RemoteEvent, error)
	updateFn   func(ctx context.Context, id string, patch EventPatch) error
	deleteFn   func(ctx context.Context, id string) error
	fromTaskFn func(ctx context.Context, taskID, title string, startAt time.Time, minutes int) (*RemoteEvent, error)
}

func (m *mockEventAPI) ListEvents(ctx context.Context, from, to time.Time) ([]RemoteEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockEventAPI) CreateEvent(ctx context.Context, payload EventPayload) (*RemoteEvent, error) {
	if m.createFn != nil {
		return m.createFn(ctx, payload)
	}
	return &RemoteEvent{ID: "evt-1", Title: payload.Title, StartAt: payload.StartAt, EndAt: payload.EndAt}, nil
}

func (m *mockEventAPI) UpdateEvent(ctx context.Context, id string, patch EventPatch) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil
}

func (m *mockEventAPI) DeleteEvent(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockEventAPI) CreateEventFromTask(ctx context.Context, taskID, title string, startAt time.Time, minutes int) (*RemoteEvent, error) {
	if m.fromTaskFn != nil {
		return m.fromTaskFn(ctx, taskID, title, startAt, minutes)
	}
	return &RemoteEvent{ID: "evt-task"}, nil
}

// --- Helpers ---

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by a timeline and its test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testDay.Add(9 * time.Hour)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestTimeline returns a timeline on testDay holding events.
func newTestTimeline(api EventAPI, clock *testClock, events ...CalendarEvent) *Timeline {
	if clock == nil {
		clock = newTestClock()
	}
	tl := NewTimeline(testDay, api, TimelineOptions{
		Scale:   DefaultTimeScale(),
		Timeout: time.Second,
		Logger:  quietLogger(),
		Now:     clock.Now,
	})
	tl.events = append([]CalendarEvent(nil), events...)
	return tl
}

func waitResult(t *testing.T, res *Result) error {
	t.Helper()
	select {
	case <-res.Done():
		return res.Wait()
	case <-time.After(2 * time.Second):
		t.Fatal("remote call did not settle")
		return nil
	}
}

// --- Create ---

func TestCreate_SwapsTemporaryID(t *testing.T) {
	var got EventPayload
	api := &mockEventAPI{createFn: func(_ context.Context, p EventPayload) (*RemoteEvent, error) {
		got = p
		return &RemoteEvent{ID: "evt-42"}, nil
	}}
	tl := newTestTimeline(api, nil, mkEvent("x", 8, 1))
	tl.gesture = AwaitingConfirmation{Start: 13, End: 14.5}

	created, res, err := tl.ConfirmDraw(EventDetails{Title: "Standup", Color: "#ff0000", Billable: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created.IsTemporary() {
		t.Errorf("expected a temporary id before the store answers, got %s", created.ID)
	}
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := tl.Events()
	if len(events) != 2 || events[1].ID != "evt-42" {
		t.Fatalf("expected temp id replaced in place, got %+v", events)
	}
	if events[1].Start != 13 || events[1].Duration != 1.5 || events[1].Title != "Standup" {
		t.Errorf("unexpected event %+v", events[1])
	}
	if got.StartAt != "2024-03-04T13:00:00Z" || got.EndAt != "2024-03-04T14:30:00Z" || !got.Billable {
		t.Errorf("unexpected payload %+v", got)
	}
	if _, idle := tl.Gesture().(Idle); !idle {
		t.Error("expected idle after confirming")
	}
}

func TestCreate_FailureRemovesEvent(t *testing.T) {
	api := &mockEventAPI{createFn: func(context.Context, EventPayload) (*RemoteEvent, error) {
		return nil, errors.New("boom")
	}}
	tl := newTestTimeline(api, nil, mkEvent("keep", 8, 1))
	tl.gesture = AwaitingConfirmation{Start: 10, End: 11}

	_, res, err := tl.ConfirmDraw(EventDetails{Title: "Doomed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.Events()) != 2 {
		t.Fatal("expected the event to appear optimistically")
	}
	if err := waitResult(t, res); err == nil {
		t.Fatal("expected the remote error")
	}
	events := tl.Events()
	if len(events) != 1 || events[0].ID != "keep" {
		t.Errorf("expected rollback to the original list, got %+v", events)
	}
}

func TestCreate_MissingIDIsFailure(t *testing.T) {
	api := &mockEventAPI{createFn: func(context.Context, EventPayload) (*RemoteEvent, error) {
		return &RemoteEvent{}, nil
	}}
	tl := newTestTimeline(api, nil)
	tl.gesture = AwaitingConfirmation{Start: 10, End: 11}

	_, res, _ := tl.ConfirmDraw(EventDetails{Title: "No id"})
	if err := waitResult(t, res); err == nil {
		t.Fatal("expected an error for a create without id")
	}
	if len(tl.Events()) != 0 {
		t.Error("expected the event to be removed")
	}
}

func TestConfirmDraw_WithoutDraft(t *testing.T) {
	tl := newTestTimeline(&mockEventAPI{}, nil)
	if _, _, err := tl.ConfirmDraw(EventDetails{Title: "x"}); !errors.Is(err, ErrNoDraft) {
		t.Errorf("expected ErrNoDraft, got %v", err)
	}
	if err := tl.CancelDraw(); !errors.Is(err, ErrNoDraft) {
		t.Errorf("expected ErrNoDraft, got %v", err)
	}
}

// --- Update ---

func TestUpdate_FailureKeepsLocalState(t *testing.T) {
	api := &mockEventAPI{updateFn: func(context.Context, string, EventPatch) error {
		return errors.New("unavailable")
	}}
	tl := newTestTimeline(api, nil, mkEvent("a", 8, 1))

	title := "Renamed"
	_, res, err := tl.Edit("a", EventEdit{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := waitResult(t, res); err == nil {
		t.Fatal("expected the remote error")
	}
	if got := tl.Events()[0].Title; got != "Renamed" {
		t.Errorf("expected local edit kept, got %q", got)
	}
}

func TestEdit_SnapsAndFloors(t *testing.T) {
	var patch EventPatch
	api := &mockEventAPI{updateFn: func(_ context.Context, _ string, p EventPatch) error {
		patch = p
		return nil
	}}
	tl := newTestTimeline(api, nil, mkEvent("a", 8, 1))

	start, duration := 9.1, 0.05
	updated, res, err := tl.Edit("a", EventEdit{Start: &start, Duration: &duration})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Start != 9 || updated.Duration != MinDuration {
		t.Errorf("expected {9, 0.25}, got {%v, %v}", updated.Start, updated.Duration)
	}
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *patch.StartAt != "2024-03-04T09:00:00Z" || *patch.EndAt != "2024-03-04T09:15:00Z" {
		t.Errorf("unexpected patch %s..%s", *patch.StartAt, *patch.EndAt)
	}
	if *patch.Title != "a" {
		t.Errorf("expected the full event state to be sent, got title %q", *patch.Title)
	}
}

func TestEdit_UnknownEvent(t *testing.T) {
	tl := newTestTimeline(&mockEventAPI{}, nil)
	if _, _, err := tl.Edit("nope", EventEdit{}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestEdit_TemporaryEventPushedAfterCreate(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var updatedID, updatedTitle string
	api := &mockEventAPI{
		createFn: func(context.Context, EventPayload) (*RemoteEvent, error) {
			<-release
			return &RemoteEvent{ID: "evt-7"}, nil
		},
		updateFn: func(_ context.Context, id string, p EventPatch) error {
			mu.Lock()
			defer mu.Unlock()
			updatedID, updatedTitle = id, *p.Title
			return nil
		},
	}
	tl := newTestTimeline(api, nil)
	tl.gesture = AwaitingConfirmation{Start: 10, End: 11}

	created, createRes, _ := tl.ConfirmDraw(EventDetails{Title: "Draft"})
	title := "Final"
	_, editRes, err := tl.Edit(created.ID, EventEdit{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := waitResult(t, editRes); err != nil {
		t.Fatalf("edit of a temporary event must settle locally: %v", err)
	}

	close(release)
	if err := waitResult(t, createRes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl.Wait()

	mu.Lock()
	defer mu.Unlock()
	if updatedID != "evt-7" || updatedTitle != "Final" {
		t.Errorf("expected deferred update of evt-7 to %q, got %s %q", "Final", updatedID, updatedTitle)
	}
}

func TestDrag_StartedBeforeCreateConfirmsIsCommitted(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var updatedID, updatedStart string
	api := &mockEventAPI{
		createFn: func(context.Context, EventPayload) (*RemoteEvent, error) {
			<-release
			return &RemoteEvent{ID: "evt-9"}, nil
		},
		updateFn: func(_ context.Context, id string, p EventPatch) error {
			mu.Lock()
			defer mu.Unlock()
			updatedID, updatedStart = id, *p.StartAt
			return nil
		},
	}
	tl := newTestTimeline(api, nil)
	tl.gesture = AwaitingConfirmation{Start: 10, End: 11}

	created, createRes, _ := tl.ConfirmDraw(EventDetails{Title: "Sync"})
	if err := tl.PointerDown(600, Hit{Kind: HitBody, EventID: created.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl.PointerMove(600)

	close(release)
	if err := waitResult(t, createRes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g, ok := tl.Gesture().(Dragging); !ok || g.EventID != "evt-9" {
		t.Fatalf("expected the drag to follow the confirmed id, got %+v", tl.Gesture())
	}

	outcome, res := tl.PointerUp(660)
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != "committed" || outcome.EventID != "evt-9" || outcome.Start != 11 {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if got := tl.Events()[0]; got.ID != "evt-9" || got.Start != 11 || got.Duration != 1 {
		t.Errorf("unexpected event %+v", got)
	}
	tl.Wait()

	mu.Lock()
	defer mu.Unlock()
	if updatedID != "evt-9" || updatedStart != "2024-03-04T11:00:00Z" {
		t.Errorf("expected the move pushed for evt-9, got %s %s", updatedID, updatedStart)
	}
}

func TestResize_ReleasedBeforeCreateConfirmsIsPushedAfter(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var updatedID string
	var updatedEnd string
	api := &mockEventAPI{
		createFn: func(context.Context, EventPayload) (*RemoteEvent, error) {
			<-release
			return &RemoteEvent{ID: "evt-10"}, nil
		},
		updateFn: func(_ context.Context, id string, p EventPatch) error {
			mu.Lock()
			defer mu.Unlock()
			updatedID, updatedEnd = id, *p.EndAt
			return nil
		},
	}
	tl := newTestTimeline(api, nil)
	tl.gesture = AwaitingConfirmation{Start: 10, End: 11}

	created, createRes, _ := tl.ConfirmDraw(EventDetails{Title: "Sync"})
	if err := tl.PointerDown(660, Hit{Kind: HitBottomEdge, EventID: created.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, res := tl.PointerUp(720)
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != "committed" || outcome.End != 12 {
		t.Errorf("unexpected outcome %+v", outcome)
	}

	close(release)
	if err := waitResult(t, createRes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl.Wait()

	mu.Lock()
	defer mu.Unlock()
	if updatedID != "evt-10" || updatedEnd != "2024-03-04T12:00:00Z" {
		t.Errorf("expected the resize pushed for evt-10, got %s %s", updatedID, updatedEnd)
	}
}

// --- Delete ---

func TestDelete_FailureRestoresEvent(t *testing.T) {
	api := &mockEventAPI{deleteFn: func(context.Context, string) error {
		return errors.New("forbidden")
	}}
	b := CalendarEvent{ID: "b", Title: "Review", Start: 10, Duration: 0.75, Color: "#00ff00", Private: true, Billable: true, TaskID: "t-3"}
	tl := newTestTimeline(api, nil, mkEvent("a", 8, 1), b, mkEvent("c", 12, 1))

	res, err := tl.Delete("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.Events()) != 2 {
		t.Fatal("expected the event to disappear optimistically")
	}
	if err := waitResult(t, res); err == nil {
		t.Fatal("expected the remote error")
	}

	events := tl.Events()
	if len(events) != 3 || !reflect.DeepEqual(events[1], b) {
		t.Errorf("expected b restored unchanged at its position, got %+v", events)
	}
}

func TestDelete_Success(t *testing.T) {
	var deleted string
	api := &mockEventAPI{deleteFn: func(_ context.Context, id string) error {
		deleted = id
		return nil
	}}
	tl := newTestTimeline(api, nil, mkEvent("a", 8, 1))

	res, err := tl.Delete("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "a" || len(tl.Events()) != 0 {
		t.Errorf("expected a deleted, got %q and %d events", deleted, len(tl.Events()))
	}
}

func TestDelete_Refusals(t *testing.T) {
	tl := newTestTimeline(&mockEventAPI{}, nil, mkEvent(TempIDPrefix+"1", 8, 1), mkEvent("b", 10, 1))

	if _, err := tl.Delete(TempIDPrefix + "1"); !errors.Is(err, ErrStillSaving) {
		t.Errorf("expected ErrStillSaving, got %v", err)
	}
	if _, err := tl.Delete("missing"); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}

	tl.gesture = Dragging{EventID: "b"}
	if _, err := tl.Delete("b"); !errors.Is(err, ErrGestureActive) {
		t.Errorf("expected ErrGestureActive, got %v", err)
	}
	if len(tl.Events()) != 2 {
		t.Error("refused deletes must not touch the list")
	}
}

// --- Task drop ---

func TestDropTask(t *testing.T) {
	var gotTask, gotTitle string
	var gotStart time.Time
	var gotMinutes int
	api := &mockEventAPI{fromTaskFn: func(_ context.Context, taskID, title string, startAt time.Time, minutes int) (*RemoteEvent, error) {
		gotTask, gotTitle, gotStart, gotMinutes = taskID, title, startAt, minutes
		return &RemoteEvent{ID: "evt-task"}, nil
	}}
	tl := newTestTimeline(api, nil)

	created, res := tl.DropTask(540, TaskDrop{TaskID: "t-1", Title: "Write report", DurationMinutes: 90})
	if created.Start != 9 || created.Duration != 1.5 || created.TaskID != "t-1" {
		t.Errorf("unexpected optimistic event %+v", created)
	}
	if err := waitResult(t, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTask != "t-1" || gotTitle != "Write report" || gotMinutes != 90 {
		t.Errorf("unexpected call: %s %q %d", gotTask, gotTitle, gotMinutes)
	}
	if !gotStart.Equal(testDay.Add(9 * time.Hour)) {
		t.Errorf("expected 09:00, got %v", gotStart)
	}
	if tl.Events()[0].ID != "evt-task" {
		t.Errorf("expected confirmed id, got %s", tl.Events()[0].ID)
	}
}

func TestDropTask_DefaultsAndClamps(t *testing.T) {
	tl := newTestTimeline(&mockEventAPI{}, nil)

	created, res := tl.DropTask(5000, TaskDrop{TaskID: "t-2"})
	waitResult(t, res)
	if created.Duration != 1 {
		t.Errorf("expected the default hour, got %v", created.Duration)
	}
	if created.Start != LatestStart {
		t.Errorf("expected start clamped to %v, got %v", LatestStart, created.Start)
	}
}
