package calendar

import (
	"errors"
	"math"
	"time"
)

// ClickSuppression is how long after a drag or resize release a click on
// the same grid is ignored, so releasing does not reopen the event.
const ClickSuppression = 250 * time.Millisecond

// ErrGestureActive is returned when a pointer-down arrives while another
// gesture is still in progress.
var ErrGestureActive = errors.New("another gesture is in progress")

// ErrUnknownEvent is returned when a gesture targets an event that is not
// on the timeline.
var ErrUnknownEvent = errors.New("event is not on this timeline")

// Gesture is the interaction mode of a timeline. Exactly one variant is
// active at a time; Drawing, Dragging and Resizing are entered from Idle only.
type Gesture interface {
	gestureKind() string
}

// Idle means no pointer gesture is in progress.
type Idle struct{}

// Drawing is a click-and-drag on empty grid space defining a new event.
type Drawing struct {
	Start float64
	End   float64
}

// AwaitingConfirmation holds a finished draw until the creation form is
// saved or dismissed. The placeholder stays visible meanwhile.
type AwaitingConfirmation struct {
	Start float64
	End   float64
}

// Dragging moves an existing event. GrabOffset is the distance in hours
// between the pointer and the event start at pointer-down.
type Dragging struct {
	EventID    string
	GrabOffset float64
}

// Resizing moves one edge of an existing event.
type Resizing struct {
	EventID string
	Edge    Edge
}

func (Idle) gestureKind() string                 { return "idle" }
func (Drawing) gestureKind() string              { return "drawing" }
func (AwaitingConfirmation) gestureKind() string { return "awaiting_confirmation" }
func (Dragging) gestureKind() string             { return "dragging" }
func (Resizing) gestureKind() string             { return "resizing" }

// Edge identifies the resize handle that was grabbed.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// HitKind classifies what a pointer-down landed on.
type HitKind string

const (
	HitEmpty      HitKind = "empty"
	HitBody       HitKind = "body"
	HitTopEdge    HitKind = "top"
	HitBottomEdge HitKind = "bottom"
)

// Hit is the target of a pointer-down as reported by the client.
type Hit struct {
	Kind    HitKind `json:"kind"`
	EventID string  `json:"event_id,omitempty"`
}

// GestureView is the serialisable form of the current gesture.
type GestureView struct {
	Kind    string  `json:"kind"`
	EventID string  `json:"event_id,omitempty"`
	Edge    Edge    `json:"edge,omitempty"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

// ViewOf flattens a gesture for rendering.
func ViewOf(g Gesture) GestureView {
	v := GestureView{Kind: g.gestureKind()}
	switch g := g.(type) {
	case Drawing:
		v.Start, v.End = g.Start, g.End
	case AwaitingConfirmation:
		v.Start, v.End = g.Start, g.End
	case Dragging:
		v.EventID = g.EventID
	case Resizing:
		v.EventID, v.Edge = g.EventID, g.Edge
	}
	return v
}

// Outcome is what a pointer-up produced.
type Outcome struct {
	// Kind is "none", "draw_finished" or "committed".
	Kind    string  `json:"kind"`
	EventID string  `json:"event_id,omitempty"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

// --- Gesture geometry ---

// drawEnd keeps a draw at least 15 minutes long and always forward of its
// anchor, whichever direction the pointer moves.
func drawEnd(anchor, t float64) float64 {
	return math.Max(anchor+MinDuration, t)
}

// dragStart returns the new start of a dragged event. Duration is untouched.
func dragStart(t, grabOffset float64) float64 {
	return clamp(Snap(t-grabOffset), 0, LatestStart)
}

// resizeTop moves the start while keeping the end fixed.
func resizeTop(ev CalendarEvent, t float64) (start, duration float64) {
	end := ev.End()
	start = clamp(t, 0, end-MinDuration)
	return start, end - start
}

// resizeBottom moves the end while keeping the start fixed.
func resizeBottom(ev CalendarEvent, t float64) float64 {
	return math.Max(MinDuration, t-ev.Start)
}
