package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

// icsProductID identifies the planner in exported calendars.
const icsProductID = "-//Workdeck//Planner//EN"

// WriteICS encodes the confirmed events of a day as an iCalendar document.
// Events still waiting for their remote create are left out since their id
// is not stable yet.
func WriteICS(w io.Writer, day time.Time, events []CalendarEvent, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)

	for _, ev := range events {
		if ev.IsTemporary() {
			continue
		}
		cal.Children = append(cal.Children, toVEvent(day, ev, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode ics: %w", err)
	}
	return nil
}

func toVEvent(day time.Time, ev CalendarEvent, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.ID+"@workdeck")
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, HourToTime(day, ev.Start).UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, HourToTime(day, ev.End()).UTC())
	if ev.Private {
		ve.Props.SetText(ical.PropClass, "PRIVATE")
	}
	return ve
}
