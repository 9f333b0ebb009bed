package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WorkingHour is the doctor-independent daily availability window for
// one weekday. Owned by configuration management; read-only here.
type WorkingHour struct {
	Base
	Day    string `db:"day" json:"day"`
	Start  string `db:"start_time" json:"start"`
	End    string `db:"end_time" json:"end"`
	Active bool   `db:"active" json:"active"`
}

// Weekday maps the stored lowercase day name to time.Weekday.
func (w *WorkingHour) Weekday() (time.Weekday, error) {
	names := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	d, ok := names[strings.ToLower(w.Day)]
	if !ok {
		return 0, fmt.Errorf("unknown weekday name %q", w.Day)
	}
	return d, nil
}

// ParseClock splits an HH:MM wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour, minute, nil
}

// Holiday is a calendar date fully excluded from slot search.
type Holiday struct {
	Base
	Name   string    `db:"name" json:"name"`
	Date   time.Time `db:"date" json:"date"`
	Active bool      `db:"active" json:"active"`
}

// SameDate reports whether the holiday falls on t's calendar day.
func (h *Holiday) SameDate(t time.Time) bool {
	hy, hm, hd := h.Date.Date()
	ty, tm, td := t.Date()
	return hy == ty && hm == tm && hd == td
}

// ScheduleSnapshot is one consistent-enough read of everything the slot
// search needs for a window. Staleness is tolerated: the coordinator
// re-validates against the database before committing.
type ScheduleSnapshot struct {
	Appointments []*Appointment
	WorkingHours []*WorkingHour
	Holidays     []*Holiday
}
