package events

import (
	"context"
	"time"

	"github.com/workdeck/planner/internal/plugins/calendar"
)

// LocalAPI exposes one owner's slice of the local store as a
// calendar.EventAPI, so timelines can run against MariaDB directly.
type LocalAPI struct {
	service EventService
	ownerID string
}

var _ calendar.EventAPI = (*LocalAPI)(nil)

// NewLocalAPI creates an EventAPI for ownerID.
func NewLocalAPI(service EventService, ownerID string) *LocalAPI {
	return &LocalAPI{service: service, ownerID: ownerID}
}

// ListEvents returns the owner's events overlapping [from, to).
func (a *LocalAPI) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.RemoteEvent, error) {
	evts, err := a.service.ListEvents(ctx, a.ownerID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]calendar.RemoteEvent, 0, len(evts))
	for i := range evts {
		out = append(out, evts[i].ToRemote())
	}
	return out, nil
}

// CreateEvent stores a new event.
func (a *LocalAPI) CreateEvent(ctx context.Context, payload calendar.EventPayload) (*calendar.RemoteEvent, error) {
	start, err := parseBodyTime("startAt", payload.StartAt)
	if err != nil {
		return nil, err
	}
	end, err := parseBodyTime("endAt", payload.EndAt)
	if err != nil {
		return nil, err
	}
	evt, err := a.service.CreateEvent(ctx, a.ownerID, CreateEventInput{
		Title:    payload.Title,
		StartAt:  start,
		EndAt:    end,
		Color:    payload.Color,
		Private:  payload.Private,
		Billable: payload.Billable,
	})
	if err != nil {
		return nil, err
	}
	r := evt.ToRemote()
	return &r, nil
}

// UpdateEvent applies patch to the owner's event.
func (a *LocalAPI) UpdateEvent(ctx context.Context, id string, patch calendar.EventPatch) error {
	input := UpdateEventInput{
		Title:    patch.Title,
		Color:    patch.Color,
		Private:  patch.Private,
		Billable: patch.Billable,
	}
	if patch.StartAt != nil {
		t, err := parseBodyTime("startAt", *patch.StartAt)
		if err != nil {
			return err
		}
		input.StartAt = &t
	}
	if patch.EndAt != nil {
		t, err := parseBodyTime("endAt", *patch.EndAt)
		if err != nil {
			return err
		}
		input.EndAt = &t
	}
	_, err := a.service.UpdateEvent(ctx, a.ownerID, id, input)
	return err
}

// DeleteEvent removes the owner's event.
func (a *LocalAPI) DeleteEvent(ctx context.Context, id string) error {
	return a.service.DeleteEvent(ctx, a.ownerID, id)
}

// CreateEventFromTask schedules a task.
func (a *LocalAPI) CreateEventFromTask(ctx context.Context, taskID, title string, startAt time.Time, durationMinutes int) (*calendar.RemoteEvent, error) {
	evt, err := a.service.CreateEventFromTask(ctx, a.ownerID, taskID, title, startAt, durationMinutes)
	if err != nil {
		return nil, err
	}
	r := evt.ToRemote()
	return &r, nil
}
