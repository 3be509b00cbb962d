package widgetconfig

import (
	"time"
)

// BusinessHours describes when agents are expected to be available.
type BusinessHours struct {
	Enabled             bool     `json:"enabled"`
	Timezone            string   `json:"timezone"`
	Schedule            Schedule `json:"schedule"`
	OutsideHoursMessage string   `json:"outsideHoursMessage"`
}

// Schedule holds one entry per weekday.
type Schedule struct {
	Monday    DaySchedule `json:"monday"`
	Tuesday   DaySchedule `json:"tuesday"`
	Wednesday DaySchedule `json:"wednesday"`
	Thursday  DaySchedule `json:"thursday"`
	Friday    DaySchedule `json:"friday"`
	Saturday  DaySchedule `json:"saturday"`
	Sunday    DaySchedule `json:"sunday"`
}

// DaySchedule is an opening window in "HH:MM" local time.
type DaySchedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Day returns the schedule entry for a weekday.
func (s Schedule) Day(d time.Weekday) DaySchedule {
	switch d {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	default:
		return s.Sunday
	}
}

// IsOpen reports whether t falls inside the configured hours.
// Disabled business hours mean always open. An unknown timezone is treated as UTC and
// an unparsable window as closed. A window whose end is before its start spans midnight.
func (b BusinessHours) IsOpen(t time.Time) bool {
	if !b.Enabled {
		return true
	}

	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	today := b.Schedule.Day(local.Weekday())
	if start, end, ok := today.window(); ok && today.Enabled {
		if start <= end {
			if minute >= start && minute < end {
				return true
			}
		} else if minute >= start {
			return true
		}
	}

	// Tail of an overnight window opened yesterday.
	yesterday := b.Schedule.Day((local.Weekday() + 6) % 7)
	if start, end, ok := yesterday.window(); ok && yesterday.Enabled && end < start {
		return minute < end
	}
	return false
}

func (d DaySchedule) window() (int, int, bool) {
	start, err := time.Parse("15:04", d.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err := time.Parse("15:04", d.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return start.Hour()*60 + start.Minute(), end.Hour()*60 + end.Minute(), true
}
