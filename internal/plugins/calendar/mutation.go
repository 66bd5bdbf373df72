package calendar

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// EventAPI is the remote event store the timeline keeps eventually
// consistent with its local list. Implemented by the Workdeck REST client
// and by the local MariaDB event store.
type EventAPI interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]RemoteEvent, error)
	CreateEvent(ctx context.Context, payload EventPayload) (*RemoteEvent, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
	CreateEventFromTask(ctx context.Context, taskID, title string, startAt time.Time, durationMinutes int) (*RemoteEvent, error)
}

// ErrStillSaving is returned when deleting an event whose create has not
// been confirmed yet.
var ErrStillSaving = errors.New("event is still being saved")

// Result reports the outcome of the remote half of an optimistic mutation.
// The local half has already been applied when a Result is returned.
type Result struct {
	done chan struct{}
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// settledResult is a Result for mutations with no remote half.
func settledResult(err error) *Result {
	r := newResult()
	r.finish(err)
	return r
}

func (r *Result) finish(err error) {
	r.err = err
	close(r.done)
}

// Done is closed once the remote call has settled and been reconciled.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the remote call settles and returns its error.
func (r *Result) Wait() error {
	<-r.done
	return r.err
}

// goRemote runs call off the caller's goroutine with a bounded context, then
// applies settle under the timeline lock. Callers may hold the lock; settle
// runs once they release it.
func (t *Timeline) goRemote(call func(ctx context.Context) error, settle func(err error)) *Result {
	res := newResult()
	t.pending.Add(1)
	t.inflight.Add(1)
	go func() {
		defer t.pending.Done()
		defer t.inflight.Add(-1)

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		err := call(ctx)
		cancel()

		t.mu.Lock()
		settle(err)
		t.mu.Unlock()
		res.finish(err)
	}()
	return res
}

// createLocked inserts ev under a temporary id and confirms it remotely.
// On success the temporary id is replaced in place; on failure the event
// is removed again. t.mu must be held.
func (t *Timeline) createLocked(ev CalendarEvent, remote func(ctx context.Context) (*RemoteEvent, error)) (CalendarEvent, *Result) {
	tempID := TempIDPrefix + uuid.NewString()
	ev.ID = tempID
	t.events = append(t.events, ev)

	var confirmed string
	res := t.goRemote(func(ctx context.Context) error {
		created, err := remote(ctx)
		if err != nil {
			return err
		}
		if created == nil || created.ID == "" {
			return errors.New("remote create returned no id")
		}
		confirmed = created.ID
		return nil
	}, func(err error) {
		idx := t.indexOf(tempID)
		if err != nil {
			t.logger.Error("remote create failed, removing optimistic event",
				slog.String("event_id", tempID),
				slog.String("title", ev.Title),
				slog.Any("error", err),
			)
			if idx >= 0 {
				t.events = slices.Delete(t.events, idx, idx+1)
			}
			delete(t.dirty, tempID)
			return
		}
		if idx < 0 {
			return
		}
		t.events[idx].ID = confirmed
		t.retargetGestureLocked(tempID, confirmed)
		if t.dirty[tempID] {
			delete(t.dirty, tempID)
			t.pushUpdateLocked(t.events[idx])
		}
		t.logger.Debug("event created",
			slog.String("temp_id", tempID),
			slog.String("event_id", confirmed),
		)
	})
	return ev, res
}

// updateLocked replaces the local event and pushes it fire-and-forget. A
// failed update is logged only; the local state stays as the user left it.
// Edits of unconfirmed events are pushed once their create succeeds.
// t.mu must be held.
func (t *Timeline) updateLocked(ev CalendarEvent) *Result {
	idx := t.indexOf(ev.ID)
	if idx < 0 {
		return settledResult(ErrUnknownEvent)
	}
	t.events[idx] = ev
	if ev.IsTemporary() {
		t.dirty[ev.ID] = true
		return settledResult(nil)
	}
	return t.pushUpdateLocked(ev)
}

func (t *Timeline) pushUpdateLocked(ev CalendarEvent) *Result {
	patch := toPatch(t.day, ev)
	return t.goRemote(func(ctx context.Context) error {
		return t.api.UpdateEvent(ctx, ev.ID, patch)
	}, func(err error) {
		if err != nil {
			t.logger.Error("remote update failed, keeping local state",
				slog.String("event_id", ev.ID),
				slog.Float64("start", ev.Start),
				slog.Float64("duration", ev.Duration),
				slog.Any("error", err),
			)
		}
	})
}

// deleteLocked removes the event locally and deletes it remotely. A failed
// delete puts the removed event back where it was. t.mu must be held.
func (t *Timeline) deleteLocked(id string) (*Result, error) {
	idx := t.indexOf(id)
	if idx < 0 {
		return nil, ErrUnknownEvent
	}
	removed := t.events[idx]
	if removed.IsTemporary() {
		return nil, ErrStillSaving
	}
	t.events = slices.Delete(t.events, idx, idx+1)

	return t.goRemote(func(ctx context.Context) error {
		return t.api.DeleteEvent(ctx, id)
	}, func(err error) {
		if err == nil {
			return
		}
		t.logger.Error("remote delete failed, restoring event",
			slog.String("event_id", id),
			slog.Any("error", err),
		)
		if t.indexOf(id) >= 0 {
			return
		}
		at := min(idx, len(t.events))
		t.events = slices.Insert(t.events, at, removed)
	}), nil
}

// retargetGestureLocked points a drag or resize that started on a temporary
// id at the id the remote store confirmed, so its pointer-up still commits.
func (t *Timeline) retargetGestureLocked(from, to string) {
	switch g := t.gesture.(type) {
	case Dragging:
		if g.EventID == from {
			g.EventID = to
			t.gesture = g
		}
	case Resizing:
		if g.EventID == from {
			g.EventID = to
			t.gesture = g
		}
	}
}

// indexOf returns the position of id in the local list, or -1.
func (t *Timeline) indexOf(id string) int {
	return slices.IndexFunc(t.events, func(e CalendarEvent) bool { return e.ID == id })
}
