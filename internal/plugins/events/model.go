// Package events is the local event store. It persists calendar events in
// MariaDB and serves them over the same REST contract as the Workdeck event
// API, so the planner can run without a remote Workdeck deployment.
package events

import (
	"time"

	"github.com/workdeck/planner/internal/plugins/calendar"
)

// Event is a stored calendar event. Times are absolute instants in UTC.
type Event struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Color     string    `json:"color"`
	Private   bool      `json:"private"`
	Billable  bool      `json:"billable"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToRemote converts the stored event to the wire form of the event API.
func (e *Event) ToRemote() calendar.RemoteEvent {
	r := calendar.RemoteEvent{
		ID:       e.ID,
		Title:    e.Title,
		StartAt:  e.StartAt.UTC().Format(time.RFC3339),
		EndAt:    e.EndAt.UTC().Format(time.RFC3339),
		Color:    e.Color,
		Private:  e.Private,
		Billable: e.Billable,
	}
	if e.TaskID != nil {
		r.TaskID = *e.TaskID
	}
	return r
}

// CreateEventInput is the validated-on-save input of a new event.
type CreateEventInput struct {
	Title    string
	StartAt  time.Time
	EndAt    time.Time
	Color    string
	Private  bool
	Billable bool
	TaskID   string
}

// UpdateEventInput is a partial update. Nil fields are left unchanged.
type UpdateEventInput struct {
	Title    *string
	StartAt  *time.Time
	EndAt    *time.Time
	Color    *string
	Private  *bool
	Billable *bool
}

// maxEventSpan bounds how long a single stored event may last.
const maxEventSpan = 7 * 24 * time.Hour
