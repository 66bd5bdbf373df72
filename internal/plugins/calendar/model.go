// Package calendar hosts the calendar time grid: a vertical day timeline on
// which events are positioned, laid out side by side when they overlap, and
// drawn, dragged and resized by pointer gestures. Every change is applied to
// the local event list first and pushed to the Workdeck event store after.
package calendar

import (
	"strings"
	"time"
)

// Grid constants, in fractional hours.
const (
	// MinDuration is the 15-minute floor every event duration respects.
	MinDuration = 0.25

	// SnapStep is the increment pointer-derived times are rounded to.
	SnapStep = 0.25

	// DefaultDrawSpan is the initial length of a freshly started draw gesture.
	DefaultDrawSpan = 0.5

	// LatestStart is the latest start a dragged event may be moved to.
	LatestStart = 24 - MinDuration

	// DefaultTaskMinutes is used when a dropped task carries no estimate.
	DefaultTaskMinutes = 60
)

// TempIDPrefix marks events that have not been confirmed by the remote store.
const TempIDPrefix = "tmp-"

// CalendarEvent is the only entity the time grid manipulates. Start and
// Duration are fractional hours relative to the timeline's day (13.5 is
// 13:30). Layout columns are not stored here; see Placement.
type CalendarEvent struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Color    string  `json:"color"`
	Private  bool    `json:"private"`
	Billable bool    `json:"billable"`
	TaskID   string  `json:"task_id,omitempty"`
}

// End returns the exclusive end of the event in fractional hours.
func (e CalendarEvent) End() float64 {
	return e.Start + e.Duration
}

// IsTemporary reports whether the event still carries a locally generated id.
func (e CalendarEvent) IsTemporary() bool {
	return strings.HasPrefix(e.ID, TempIDPrefix)
}

// Overlaps is the half-open interval intersection test used by the layout.
func (e CalendarEvent) Overlaps(o CalendarEvent) bool {
	return e.Start < o.End() && e.End() > o.Start
}

// EventDetails are the metadata fields the event form collects. They are
// applied on create (after a draw gesture) and on edit.
type EventDetails struct {
	Title    string `json:"title"`
	Color    string `json:"color"`
	Private  bool   `json:"private"`
	Billable bool   `json:"billable"`
}

// EventEdit is a partial edit of an existing event. Nil fields are kept.
type EventEdit struct {
	Title    *string  `json:"title,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Start    *float64 `json:"start,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Private  *bool    `json:"private,omitempty"`
	Billable *bool    `json:"billable,omitempty"`
}

// TaskDrop is the payload of a task dragged from a task list onto the grid.
type TaskDrop struct {
	TaskID          string `json:"task_id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

// --- Remote store contract ---

// RemoteEvent is an event as the remote store returns it. Times are ISO-8601
// strings; conversion to fractional hours happens in dates.go only.
type RemoteEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	StartAt  string `json:"startAt"`
	EndAt    string `json:"endAt"`
	Color    string `json:"color"`
	Private  bool   `json:"private"`
	Billable bool   `json:"billable"`
	TaskID   string `json:"taskId,omitempty"`
}

// EventPayload is the body of a remote create.
type EventPayload struct {
	Title    string `json:"title"`
	StartAt  string `json:"startAt"`
	EndAt    string `json:"endAt"`
	Color    string `json:"color"`
	Private  bool   `json:"private"`
	Billable bool   `json:"billable"`
}

// EventPatch is the body of a remote update. Nil fields are not sent.
type EventPatch struct {
	Title    *string `json:"title,omitempty"`
	StartAt  *string `json:"startAt,omitempty"`
	EndAt    *string `json:"endAt,omitempty"`
	Color    *string `json:"color,omitempty"`
	Private  *bool   `json:"private,omitempty"`
	Billable *bool   `json:"billable,omitempty"`
}

// --- View data ---

// Snapshot is the render state of a timeline at one instant.
type Snapshot struct {
	Date        string          `json:"date"`
	Events      []CalendarEvent `json:"events"`
	Placements  []Placement     `json:"placements"`
	Gesture     GestureView     `json:"gesture"`
	Placeholder *Placeholder    `json:"placeholder,omitempty"`
	Scale       TimeScale       `json:"scale"`
	TakenAt     time.Time       `json:"taken_at"`
}

// Placeholder is the provisional block shown while a new event is drawn and
// until its creation form is saved or dismissed.
type Placeholder struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Label  string  `json:"label"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}
