package calendar

import (
	"fmt"
	"math"
)

// TimeScale maps vertical pixel offsets inside the timeline viewport to
// fractional hours and back. The visible range is [StartHour, EndHour+1].
type TimeScale struct {
	PixelsPerHour float64 `json:"pixels_per_hour"`
	StartHour     float64 `json:"start_hour"`
	EndHour       float64 `json:"end_hour"`
}

// DefaultTimeScale is a full day at 60 pixels per hour.
func DefaultTimeScale() TimeScale {
	return TimeScale{PixelsPerHour: 60, StartHour: 0, EndHour: 23}
}

// PixelToHour converts a pointer offset to a snapped hour inside the visible
// range. Malformed coordinates never fail; NaN resolves to StartHour and
// infinities to the nearest bound.
func (s TimeScale) PixelToHour(y float64) float64 {
	if math.IsNaN(y) {
		return s.StartHour
	}
	h := Snap(s.StartHour + y/s.PixelsPerHour)
	return clamp(h, s.StartHour, s.EndHour+1)
}

// HourToPixel converts an hour to a pixel offset from the top of the grid.
func (s TimeScale) HourToPixel(h float64) float64 {
	return (h - s.StartHour) * s.PixelsPerHour
}

// Height returns the full pixel height of the visible range.
func (s TimeScale) Height() float64 {
	return (s.EndHour + 1 - s.StartHour) * s.PixelsPerHour
}

// Snap rounds an hour to the nearest quarter hour, halves rounding up.
func Snap(h float64) float64 {
	return math.Floor(h/SnapStep+0.5) * SnapStep
}

// ClampStart keeps an event start inside the day.
func ClampStart(h float64) float64 {
	if math.IsNaN(h) {
		return 0
	}
	return clamp(h, 0, 24)
}

// FormatTime renders a fractional hour as zero-padded HH:MM. Hours are
// floored and minutes rounded; a rounded 60 carries into the next hour.
func FormatTime(h float64) string {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return "--:--"
	}
	hours := int(math.Floor(h))
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// FormatRange renders "HH:MM–HH:MM".
func FormatRange(start, end float64) string {
	return FormatTime(start) + "–" + FormatTime(end)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
