package scheduler

import "time"

const (
	// windowStartHour is the wall-clock hour the search window opens at:
	// bookings always start "tomorrow at 08:00" plus the week offset.
	windowStartHour = 8

	windowSpan = 7 * 24 * time.Hour
)

// Window computes the half-open search interval for a booking request.
// For weekOffset 0 it starts at 08:00 local time on the day after now;
// each increment shifts the start by one full week. The span is always
// exactly one week.
func Window(now time.Time, weekOffset int) (start, end time.Time) {
	year, month, day := now.Date()
	tomorrow := time.Date(year, month, day+1, windowStartHour, 0, 0, 0, now.Location())

	start = tomorrow.Add(time.Duration(weekOffset) * windowSpan)
	end = start.Add(windowSpan)
	return start, end
}
