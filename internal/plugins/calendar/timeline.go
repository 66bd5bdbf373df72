package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoDraft is returned when a draw is confirmed or cancelled while no
// finished draw is waiting for its creation form.
var ErrNoDraft = errors.New("no drawn event is awaiting confirmation")

// TimelineOptions configures a Timeline. Zero values fall back to defaults.
type TimelineOptions struct {
	Scale   TimeScale
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Timeline owns the event list of one day and every gesture on it. It is
// the only writer of that list: pointer input, form submissions and remote
// settlements all go through its lock, one at a time.
type Timeline struct {
	mu sync.Mutex

	day     time.Time
	scale   TimeScale
	api     EventAPI
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	events        []CalendarEvent
	gesture       Gesture
	suppressUntil time.Time
	lastUsed      time.Time

	// dirty marks unconfirmed events edited before their create settled.
	dirty map[string]bool

	pending  sync.WaitGroup
	inflight atomic.Int32
}

// NewTimeline creates an empty timeline for day. Call Load to fill it.
func NewTimeline(day time.Time, api EventAPI, opts TimelineOptions) *Timeline {
	if opts.Scale.PixelsPerHour <= 0 {
		opts.Scale = DefaultTimeScale()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Timeline{
		day:      day,
		scale:    opts.Scale,
		api:      api,
		timeout:  opts.Timeout,
		logger:   opts.Logger.With(slog.String("day", day.Format(DateLayout))),
		now:      opts.Now,
		gesture:  Idle{},
		dirty:    make(map[string]bool),
		lastUsed: opts.Now(),
	}
}

// Day returns midnight of the day this timeline shows.
func (t *Timeline) Day() time.Time {
	return t.day
}

// Load replaces the local list with the remote events of the day. Events
// with unparseable timestamps are skipped and logged.
func (t *Timeline) Load(ctx context.Context) error {
	remote, err := t.api.ListEvents(ctx, t.day, t.day.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	events := make([]CalendarEvent, 0, len(remote))
	for _, r := range remote {
		ev, err := fromRemote(t.day, r)
		if err != nil {
			t.logger.Warn("skipping event with unreadable time",
				slog.String("event_id", r.ID),
				slog.Any("error", err),
			)
			continue
		}
		events = append(events, ev)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = events
	t.touchLocked()
	return nil
}

// Events returns a copy of the local event list.
func (t *Timeline) Events() []CalendarEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.events)
}

// Gesture returns the current interaction mode.
func (t *Timeline) Gesture() Gesture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gesture
}

// Snapshot returns everything needed to render the grid right now. The
// layout is derived from the event list on every call.
func (t *Timeline) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	events := slices.Clone(t.events)
	snap := Snapshot{
		Date:       t.day.Format(DateLayout),
		Events:     events,
		Placements: Layout(events, t.scale),
		Gesture:    ViewOf(t.gesture),
		Scale:      t.scale,
		TakenAt:    t.now(),
	}
	switch g := t.gesture.(type) {
	case Drawing:
		snap.Placeholder = t.placeholder(g.Start, g.End)
	case AwaitingConfirmation:
		snap.Placeholder = t.placeholder(g.Start, g.End)
	}
	return snap
}

func (t *Timeline) placeholder(start, end float64) *Placeholder {
	return &Placeholder{
		Start:  start,
		End:    end,
		Label:  FormatRange(start, end),
		Top:    t.scale.HourToPixel(start),
		Height: (end - start) * t.scale.PixelsPerHour,
	}
}

// --- Pointer input ---

// PointerDown starts a gesture. Only legal from Idle: empty space starts a
// draw, an event body a drag and an edge handle a resize.
func (t *Timeline) PointerDown(y float64, hit Hit) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	if _, idle := t.gesture.(Idle); !idle {
		return ErrGestureActive
	}

	at := t.scale.PixelToHour(y)
	if hit.Kind == HitEmpty || hit.Kind == "" {
		t.gesture = Drawing{Start: at, End: at + DefaultDrawSpan}
		return nil
	}

	idx := t.indexOf(hit.EventID)
	if idx < 0 {
		return ErrUnknownEvent
	}
	switch hit.Kind {
	case HitBody:
		t.gesture = Dragging{EventID: hit.EventID, GrabOffset: at - t.events[idx].Start}
	case HitTopEdge:
		t.gesture = Resizing{EventID: hit.EventID, Edge: EdgeTop}
	case HitBottomEdge:
		t.gesture = Resizing{EventID: hit.EventID, Edge: EdgeBottom}
	default:
		return fmt.Errorf("unknown hit kind %q", hit.Kind)
	}
	return nil
}

// PointerMove advances the active gesture. It is a no-op when idle or
// when a finished draw is waiting for its form.
func (t *Timeline) PointerMove(y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()
	t.moveLocked(t.scale.PixelToHour(y))
}

func (t *Timeline) moveLocked(at float64) {
	switch g := t.gesture.(type) {
	case Drawing:
		g.End = drawEnd(g.Start, at)
		t.gesture = g
	case Dragging:
		if idx := t.indexOf(g.EventID); idx >= 0 {
			t.events[idx].Start = dragStart(at, g.GrabOffset)
		}
	case Resizing:
		idx := t.indexOf(g.EventID)
		if idx < 0 {
			return
		}
		ev := &t.events[idx]
		if g.Edge == EdgeTop {
			ev.Start, ev.Duration = resizeTop(*ev, at)
		} else {
			ev.Duration = resizeBottom(*ev, at)
		}
	}
}

// PointerUp ends the active gesture at y. A draw moves to awaiting
// confirmation; a drag or resize is committed to the remote store and
// briefly suppresses clicks.
func (t *Timeline) PointerUp(y float64) (Outcome, *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	t.moveLocked(t.scale.PixelToHour(y))

	switch g := t.gesture.(type) {
	case Drawing:
		t.gesture = AwaitingConfirmation(g)
		return Outcome{Kind: "draw_finished", Start: g.Start, End: g.End}, settledResult(nil)
	case Dragging:
		return t.commitLocked(g.EventID)
	case Resizing:
		return t.commitLocked(g.EventID)
	}
	return Outcome{Kind: "none"}, settledResult(nil)
}

func (t *Timeline) commitLocked(id string) (Outcome, *Result) {
	t.gesture = Idle{}
	t.suppressUntil = t.now().Add(ClickSuppression)

	idx := t.indexOf(id)
	if idx < 0 {
		// Removed by a settling remote call mid-gesture.
		return Outcome{Kind: "none"}, settledResult(ErrUnknownEvent)
	}
	ev := t.events[idx]
	return Outcome{Kind: "committed", EventID: id, Start: ev.Start, End: ev.End()}, t.updateLocked(ev)
}

// PointerLeave cancels a draw in progress. Drags and resizes cannot be
// cancelled; they commit on the next pointer-up.
func (t *Timeline) PointerLeave() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	if _, drawing := t.gesture.(Drawing); drawing {
		t.gesture = Idle{}
	}
}

// --- Form and list actions ---

// ConfirmDraw creates the drawn event with the details from its form.
func (t *Timeline) ConfirmDraw(details EventDetails) (CalendarEvent, *Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	g, ok := t.gesture.(AwaitingConfirmation)
	if !ok {
		return CalendarEvent{}, nil, ErrNoDraft
	}
	t.gesture = Idle{}

	ev := CalendarEvent{
		Title:    details.Title,
		Start:    ClampStart(g.Start),
		Duration: max(MinDuration, g.End-g.Start),
		Color:    details.Color,
		Private:  details.Private,
		Billable: details.Billable,
	}
	payload := toPayload(t.day, ev)
	created, res := t.createLocked(ev, func(ctx context.Context) (*RemoteEvent, error) {
		return t.api.CreateEvent(ctx, payload)
	})
	return created, res, nil
}

// CancelDraw discards a finished draw whose form was dismissed.
func (t *Timeline) CancelDraw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	if _, ok := t.gesture.(AwaitingConfirmation); !ok {
		return ErrNoDraft
	}
	t.gesture = Idle{}
	return nil
}

// DropTask turns a task dropped at y into an event of the task's length.
func (t *Timeline) DropTask(y float64, drop TaskDrop) (CalendarEvent, *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	minutes := drop.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultTaskMinutes
	}
	ev := CalendarEvent{
		Title:    drop.Title,
		Start:    min(ClampStart(t.scale.PixelToHour(y)), LatestStart),
		Duration: max(MinDuration, float64(minutes)/60),
		TaskID:   drop.TaskID,
	}
	startAt := HourToTime(t.day, ev.Start)
	return t.createLocked(ev, func(ctx context.Context) (*RemoteEvent, error) {
		return t.api.CreateEventFromTask(ctx, drop.TaskID, drop.Title, startAt, minutes)
	})
}

// Edit applies a partial edit from the event form.
func (t *Timeline) Edit(id string, edit EventEdit) (CalendarEvent, *Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	idx := t.indexOf(id)
	if idx < 0 {
		return CalendarEvent{}, nil, ErrUnknownEvent
	}
	ev := t.events[idx]
	if edit.Title != nil {
		ev.Title = *edit.Title
	}
	if edit.Color != nil {
		ev.Color = *edit.Color
	}
	if edit.Start != nil {
		ev.Start = ClampStart(Snap(*edit.Start))
	}
	if edit.Duration != nil {
		ev.Duration = max(MinDuration, Snap(*edit.Duration))
	}
	if edit.Private != nil {
		ev.Private = *edit.Private
	}
	if edit.Billable != nil {
		ev.Billable = *edit.Billable
	}
	return ev, t.updateLocked(ev), nil
}

// Delete removes an event, restoring it if the remote delete fails.
func (t *Timeline) Delete(id string) (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	if g, ok := t.gesture.(Dragging); ok && g.EventID == id {
		return nil, ErrGestureActive
	}
	if g, ok := t.gesture.(Resizing); ok && g.EventID == id {
		return nil, ErrGestureActive
	}
	return t.deleteLocked(id)
}

// Click reports whether a click on an event may open its detail view.
// Clicks right after a drag or resize release are swallowed.
func (t *Timeline) Click(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()

	if _, idle := t.gesture.(Idle); !idle {
		return false
	}
	if t.now().Before(t.suppressUntil) {
		return false
	}
	return t.indexOf(id) >= 0
}

// Wait blocks until every in-flight remote call has settled.
func (t *Timeline) Wait() {
	t.pending.Wait()
}

// Saving reports whether remote calls are still in flight.
func (t *Timeline) Saving() bool {
	return t.inflight.Load() > 0
}

// LastUsed returns when the timeline last received input.
func (t *Timeline) LastUsed() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastUsed
}

func (t *Timeline) touchLocked() {
	t.lastUsed = t.now()
}
