package calendar

import (
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/workdeck/planner/internal/sanitize"
)

// View models for timeline.templ. Positions are emitted as inline styles so
// the grid renders without the client script.

// eventBlockView pairs an event with the attributes of its block.
type eventBlockView struct {
	Event CalendarEvent
	Attrs templ.Attributes
}

// dayNavView holds the links of the day navigation bar.
type dayNavView struct {
	Valid  bool
	Title  string
	Prev   templ.Attributes
	Next   templ.Attributes
	Export templ.Attributes
}

func eventBlocks(snap Snapshot) []eventBlockView {
	out := make([]eventBlockView, 0, len(snap.Events))
	for i, ev := range snap.Events {
		if i >= len(snap.Placements) {
			break
		}
		out = append(out, eventBlockView{Event: ev, Attrs: blockAttrs(ev, snap.Placements[i], snap.Gesture)})
	}
	return out
}

func blockAttrs(ev CalendarEvent, p Placement, g GestureView) templ.Attributes {
	classes := []string{"event"}
	if ev.IsTemporary() {
		classes = append(classes, "saving")
	}
	if g.EventID != "" && g.EventID == ev.ID {
		classes = append(classes, "active")
	}
	if ev.Private {
		classes = append(classes, "private")
	}

	style := "top:" + px(p.Top) + ";height:" + px(p.Height) +
		";left:" + num(p.LeftPercent) + "%;width:" + num(p.WidthPercent) + "%"
	if color, ok := sanitize.Color(ev.Color); ok && color != "" {
		style += ";background-color:" + color
	}
	return templ.Attributes{"class": strings.Join(classes, " "), "style": style}
}

func dayNavFor(date string) dayNavView {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return dayNavView{}
	}
	return dayNavView{
		Valid:  true,
		Title:  day.Format("Monday, 2 January 2006"),
		Prev:   templ.Attributes{"href": "/calendar?date=" + day.AddDate(0, 0, -1).Format(DateLayout)},
		Next:   templ.Attributes{"href": "/calendar?date=" + day.AddDate(0, 0, 1).Format(DateLayout)},
		Export: templ.Attributes{"href": "/calendar/export.ics?date=" + date},
	}
}

func hourMarks(s TimeScale) []float64 {
	var marks []float64
	for h := int(s.StartHour); h <= int(s.EndHour); h++ {
		marks = append(marks, float64(h))
	}
	return marks
}

func gridAttrs(s TimeScale) templ.Attributes {
	return templ.Attributes{"style": "height:" + px(s.Height())}
}

func hourAttrs(s TimeScale, h float64) templ.Attributes {
	return templ.Attributes{"style": "top:" + px(s.HourToPixel(h))}
}

func placeholderAttrs(p *Placeholder) templ.Attributes {
	return templ.Attributes{"style": "top:" + px(p.Top) + ";height:" + px(p.Height)}
}

func awaitingForm(snap Snapshot) bool {
	return snap.Gesture.Kind == "awaiting_confirmation" && snap.Placeholder != nil
}

// num formats a float for CSS without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func px(f float64) string {
	return num(f) + "px"
}
