package skills

import (
	"time"

	"github.com/hupe1980/skillmesh/function"
)

// TimeSkill returns the current date and time in various formats.
type TimeSkill struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

var _ function.NativeSkill = (*TimeSkill)(nil)

// NewTimeSkill creates a TimeSkill using the wall clock.
func NewTimeSkill() *TimeSkill { return &TimeSkill{Now: time.Now} }

func (s *TimeSkill) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *TimeSkill) format(layout string) func() string {
	return func() string { return s.now().Format(layout) }
}

// Functions implements function.NativeSkill.
func (s *TimeSkill) Functions() []function.Definition {
	return []function.Definition{
		{Name: "Date", Description: "Get the current date", Fn: s.format("Monday, 2 January, 2006")},
		{Name: "Today", Description: "Get the current date", Fn: s.format("Monday, 2 January, 2006")},
		{Name: "Now", Description: "Get the current date and time in the local time zone", Fn: s.format("Monday, January 2, 2006 3:04 PM")},
		{Name: "UtcNow", Description: "Get the current UTC date and time", Fn: func() string {
			return s.now().UTC().Format("Monday, January 2, 2006 3:04 PM")
		}},
		{Name: "Time", Description: "Get the current time", Fn: s.format("03:04:05 PM")},
		{Name: "Year", Description: "Get the current year", Fn: s.format("2006")},
		{Name: "Month", Description: "Get the current month name", Fn: s.format("January")},
		{Name: "MonthNumber", Description: "Get the current month number", Fn: s.format("01")},
		{Name: "Day", Description: "Get the current day of the month", Fn: s.format("02")},
		{Name: "DayOfWeek", Description: "Get the current day of the week", Fn: s.format("Monday")},
		{Name: "Hour", Description: "Get the current clock hour", Fn: s.format("3 PM")},
		{Name: "HourNumber", Description: "Get the current clock 24-hour number", Fn: s.format("15")},
		{Name: "Minute", Description: "Get the minutes on the current hour", Fn: s.format("04")},
		{Name: "Second", Description: "Get the seconds on the current minute", Fn: s.format("05")},
		{Name: "TimeZoneOffset", Description: "Get the local time zone offset from UTC", Fn: s.format("-07:00")},
		{Name: "TimeZoneName", Description: "Get the local time zone name", Fn: s.format("MST")},
	}
}
