// Package scheduler implements the slot search engine: pure functions
// that compute the earliest free one-hour slot per doctor and the best
// doctor/slot pair across a pool. The package performs no I/O; callers
// pass in a schedule snapshot and handle all persistence and locking.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/yferras/clinic-api/internal/model"
)

// EarliestSlot finds the earliest one-hour slot for a single doctor
// inside [windowStart, windowEnd). A candidate slot must fit entirely
// within the active working hours of its weekday, must not fall on a
// holiday date, and must not overlap any scheduled appointment for the
// doctor. Returns false when the window holds no free slot.
func EarliestSlot(doctorID uuid.UUID, snapshot *model.ScheduleSnapshot, windowStart, windowEnd time.Time) (*model.Slot, bool) {
	// Filter once up front rather than per candidate slot.
	var booked []*model.Appointment
	for _, apt := range snapshot.Appointments {
		if apt.DoctorID == doctorID {
			booked = append(booked, apt)
		}
	}

	current := windowStart
	for current.Before(windowEnd) {
		if isHoliday(snapshot.Holidays, current) {
			current = nextDay(current)
			continue
		}

		wh, ok := workingHourFor(snapshot.WorkingHours, current.Weekday())
		if !ok {
			current = nextDay(current)
			continue
		}

		dayStart, dayEnd, err := clockBounds(wh, current)
		if err != nil {
			// Malformed working-hour record; treat the day as closed.
			current = nextDay(current)
			continue
		}

		// The first day's cursor must never precede the window start,
		// even when working hours open earlier.
		cursor := dayStart
		if cursor.Before(current) {
			cursor = current
		}

		for !cursor.Add(model.SlotDuration).After(dayEnd) {
			// The walk enters the day containing windowEnd; everything
			// from windowEnd onward is outside the half-open window, and
			// the cursor only moves forward.
			if !cursor.Before(windowEnd) {
				return nil, false
			}
			slotEnd := cursor.Add(model.SlotDuration)
			if !conflicts(booked, cursor, slotEnd) {
				return &model.Slot{
					DoctorID: doctorID,
					Start:    cursor,
					End:      slotEnd,
				}, true
			}
			cursor = slotEnd
		}

		current = nextDay(current)
	}

	return nil, false
}

// BestSlot runs EarliestSlot for every doctor in the pool and returns
// the candidate with the smallest start instant. Ties go to the doctor
// appearing first in pool order; since the resolver shuffles the pool
// per request, equally-early doctors share load across requests.
func BestSlot(pool []uuid.UUID, snapshot *model.ScheduleSnapshot, windowStart, windowEnd time.Time) (*model.Slot, bool) {
	var best *model.Slot
	for _, doctorID := range pool {
		slot, ok := EarliestSlot(doctorID, snapshot, windowStart, windowEnd)
		if !ok {
			continue
		}
		if best == nil || slot.Start.Before(best.Start) {
			best = slot
		}
	}
	return best, best != nil
}

// conflicts applies the half-open interval overlap test against every
// booked appointment: [start, end) collides with [a.Start, a.End) iff
// a.Start < end && a.End > start.
func conflicts(booked []*model.Appointment, start, end time.Time) bool {
	for _, apt := range booked {
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			return true
		}
	}
	return false
}

func isHoliday(holidays []*model.Holiday, t time.Time) bool {
	for _, h := range holidays {
		if h.SameDate(t) {
			return true
		}
	}
	return false
}

func workingHourFor(hours []*model.WorkingHour, weekday time.Weekday) (*model.WorkingHour, bool) {
	for _, wh := range hours {
		if !wh.Active {
			continue
		}
		d, err := wh.Weekday()
		if err != nil {
			continue
		}
		if d == weekday {
			return wh, true
		}
	}
	return nil, false
}

func clockBounds(wh *model.WorkingHour, day time.Time) (start, end time.Time, err error) {
	startH, startM, err := model.ParseClock(wh.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endH, endM, err := model.ParseClock(wh.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	year, month, d := day.Date()
	start = time.Date(year, month, d, startH, startM, 0, 0, day.Location())
	end = time.Date(year, month, d, endH, endM, 0, 0, day.Location())
	return start, end, nil
}

// nextDay resets hours, minutes and seconds so the day walk never
// drifts when the window starts mid-day.
func nextDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
