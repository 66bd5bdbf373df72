package calendar

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the query-string form of a timeline day.
const DateLayout = "2006-01-02"

// legacyLayout is the DD/MM/YYYY HH:mm:ss±HH:mm form some Workdeck
// endpoints still emit.
const legacyLayout = "02/01/2006 15:04:05-07:00"

// ParseDay parses a YYYY-MM-DD day in loc and returns its midnight.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return d, nil
}

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseEventTime parses a timestamp coming from the remote store. ISO-8601
// is tried first, then the legacy day-first layout.
func ParseEventTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(legacyLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// HourToTime maps a fractional hour on day to a wall-clock instant.
// Minutes are rounded so quarter-hour values map exactly.
func HourToTime(day time.Time, h float64) time.Time {
	minutes := int(math.Round(h * 60))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, day.Location())
}

// TimeToHour maps an instant to its wall-clock hour on day, read in the
// day's zone, so it inverts HourToTime on daylight-saving changeover days.
// Instants on other days fall outside [0, 24).
func TimeToHour(day time.Time, t time.Time) float64 {
	local := t.In(day.Location())
	y, m, d := local.Date()
	dy, dm, dd := day.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)).Hours() / 24
	return days*24 + float64(local.Hour()) + float64(local.Minute())/60 + float64(local.Second())/3600
}

// FormatISO renders a fractional hour on day as an ISO-8601 timestamp.
func FormatISO(day time.Time, h float64) string {
	return HourToTime(day, h).Format(time.RFC3339)
}

// fromRemote converts a remote event into the grid's representation.
// The start is clamped into the day and the duration floored to 15 minutes.
func fromRemote(day time.Time, r RemoteEvent) (CalendarEvent, error) {
	start, err := ParseEventTime(r.StartAt)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("event %s start: %w", r.ID, err)
	}
	end, err := ParseEventTime(r.EndAt)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("event %s end: %w", r.ID, err)
	}
	s := ClampStart(TimeToHour(day, start))
	return CalendarEvent{
		ID:       r.ID,
		Title:    r.Title,
		Start:    s,
		Duration: math.Max(MinDuration, TimeToHour(day, end)-s),
		Color:    r.Color,
		Private:  r.Private,
		Billable: r.Billable,
		TaskID:   r.TaskID,
	}, nil
}

// toPayload converts a local event into a remote create body.
func toPayload(day time.Time, ev CalendarEvent) EventPayload {
	return EventPayload{
		Title:    ev.Title,
		StartAt:  FormatISO(day, ev.Start),
		EndAt:    FormatISO(day, ev.End()),
		Color:    ev.Color,
		Private:  ev.Private,
		Billable: ev.Billable,
	}
}

// toPatch converts the full state of a local event into a remote update.
func toPatch(day time.Time, ev CalendarEvent) EventPatch {
	startAt := FormatISO(day, ev.Start)
	endAt := FormatISO(day, ev.End())
	return EventPatch{
		Title:    &ev.Title,
		StartAt:  &startAt,
		EndAt:    &endAt,
		Color:    &ev.Color,
		Private:  &ev.Private,
		Billable: &ev.Billable,
	}
}
