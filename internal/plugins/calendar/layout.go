package calendar

import "sort"

// Placement is the derived, render-only position of one event. It is
// recomputed from the event list on every layout pass and never stored.
type Placement struct {
	EventID       string  `json:"event_id"`
	Column        int     `json:"column"`
	TotalOverlaps int     `json:"total_overlaps"`
	WidthPercent  float64 `json:"width_percent"`
	LeftPercent   float64 `json:"left_percent"`
	Top           float64 `json:"top"`
	Height        float64 `json:"height"`
}

// Layout assigns every event a column so intersecting events never share
// one. Events are placed in start order (stable for equal starts), each
// taking the lowest column not used by an intersecting, already placed
// event. TotalOverlaps is the largest column+1 among the event and the
// events that intersect it directly, so partially chained groups may report
// different counts for their members.
//
// The result is ordered like the input, which keeps it deterministic for a
// fixed input list.
func Layout(events []CalendarEvent, scale TimeScale) []Placement {
	if len(events) == 0 {
		return nil
	}

	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return events[order[a]].Start < events[order[b]].Start
	})

	columns := make([]int, len(events))
	placed := make([]int, 0, len(events))
	for _, idx := range order {
		used := make(map[int]bool)
		for _, p := range placed {
			if events[p].Overlaps(events[idx]) {
				used[columns[p]] = true
			}
		}
		col := 0
		for used[col] {
			col++
		}
		columns[idx] = col
		placed = append(placed, idx)
	}

	out := make([]Placement, len(events))
	for i, ev := range events {
		total := columns[i] + 1
		for j, other := range events {
			if i != j && ev.Overlaps(other) && columns[j]+1 > total {
				total = columns[j] + 1
			}
		}
		width := 100 / float64(total)
		out[i] = Placement{
			EventID:       ev.ID,
			Column:        columns[i],
			TotalOverlaps: total,
			WidthPercent:  width,
			LeftPercent:   float64(columns[i]) * width,
			Top:           scale.HourToPixel(ev.Start),
			Height:        ev.Duration * scale.PixelsPerHour,
		}
	}
	return out
}
