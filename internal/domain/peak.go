package domain

import (
	"fmt"
	"time"
)

// ─── Peak Schedule ──────────────────────────────────────────────────────────
// Windows are half-open [From, To) in minutes since local midnight. A window
// that crosses midnight is split into two same-day windows on adjacent days.

// PeakWindow is one peak interval within a calendar day.
type PeakWindow struct {
	From int // inclusive, minutes since midnight
	To   int // exclusive, minutes since midnight
}

// Contains reports whether the minute-of-day hm falls inside the window.
func (w PeakWindow) Contains(hm int) bool { return hm >= w.From && hm < w.To }

// String formats the window as HH:MM–HH:MM.
func (w PeakWindow) String() string {
	return fmt.Sprintf("%02d:%02d–%02d:%02d", w.From/60, w.From%60, w.To/60, w.To%60)
}

const endOfDay = 24 * 60

var (
	dayShift      = PeakWindow{From: 6 * 60, To: 19 * 60}  // Sun–Wed
	thursdayShift = PeakWindow{From: 6 * 60, To: endOfDay} // Thu to midnight
	weekendNight  = PeakWindow{From: 18 * 60, To: endOfDay}
	afterMidnight = PeakWindow{From: 0, To: 60} // continuation of the previous night
)

// peakSchedule is indexed by time.Weekday (Sunday = 0).
var peakSchedule = [7][]PeakWindow{
	time.Sunday:    {afterMidnight, dayShift},
	time.Monday:    {dayShift},
	time.Tuesday:   {dayShift},
	time.Wednesday: {dayShift},
	time.Thursday:  {thursdayShift},
	time.Friday:    {afterMidnight, weekendNight},
	time.Saturday:  {afterMidnight, weekendNight},
}

// PeakWindows returns a copy of the peak windows for a weekday.
func PeakWindows(day time.Weekday) []PeakWindow {
	if day < time.Sunday || day > time.Saturday {
		return nil
	}
	out := make([]PeakWindow, len(peakSchedule[day]))
	copy(out, peakSchedule[day])
	return out
}

// IsPeak reports whether t falls in a peak window, evaluated on the wall
// clock of loc. A nil loc uses t's own location.
func IsPeak(t time.Time, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	hm := t.Hour()*60 + t.Minute()

	peak := false
	for _, w := range peakSchedule[t.Weekday()] {
		if w.Contains(hm) {
			peak = true
		}
	}
	return peak
}

// ─── Week Range ─────────────────────────────────────────────────────────────

// WeekRange is the Monday-to-Sunday incentive week.
type WeekRange struct {
	Start time.Time `json:"start"` // Monday 00:00:00.000
	End   time.Time `json:"end"`   // Sunday 23:59:59.999
}

// WeekOf returns the week containing now, in now's location.
func WeekOf(now time.Time) WeekRange {
	offset := int(now.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset = 6 // Sunday closes the week
	}
	y, m, d := now.Date()
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	return WeekRange{
		Start: monday,
		End:   monday.AddDate(0, 0, 7).Add(-time.Millisecond),
	}
}

// Contains reports whether t lies inside the week.
func (w WeekRange) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
