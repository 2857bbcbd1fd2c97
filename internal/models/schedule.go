package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Day-of-week bitmask values for weekly schedules. The bit for a weekday is
// 1 << time.Weekday, so Sunday=1, Monday=2, ... Saturday=64.
const (
	Sunday    = 1 << time.Sunday
	Monday    = 1 << time.Monday
	Tuesday   = 1 << time.Tuesday
	Wednesday = 1 << time.Wednesday
	Thursday  = 1 << time.Thursday
	Friday    = 1 << time.Friday
	Saturday  = 1 << time.Saturday
	AllDays   = 127
	Weekdays  = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekends  = Saturday | Sunday
)

// Schedule interval bounds in minutes.
const (
	DefaultIntervalMinutes = 60
	MinIntervalMinutes     = 15
	MaxIntervalMinutes     = 600
)

// Schedule is one composable trigger rule. Multiple schedules per source
// combine with OR semantics: the source is due when any enabled schedule
// says so.
type Schedule struct {
	ID           string       `json:"id"`
	CalendarType CalendarType `json:"calendar_type"`
	IntervalType IntervalType `json:"interval_type"`
	Enabled      bool         `json:"enabled"`
	Order        int          `json:"order"`

	// Interval settings, shared by all calendar types.
	IntervalMinutes int `json:"interval_minutes"`
	Hour            int `json:"hour"`
	Minute          int `json:"minute"`

	// Calendar settings. SelectedDate applies to CalendarSelectedDay,
	// FromDate/ToDate to CalendarDateRange, EnabledDays/WeekParity to
	// CalendarWeekly.
	SelectedDate time.Time  `json:"selected_date,omitzero"`
	FromDate     time.Time  `json:"from_date,omitzero"`
	ToDate       time.Time  `json:"to_date,omitzero"`
	EnabledDays  int        `json:"enabled_days"`
	WeekParity   WeekParity `json:"week_parity"`
}

// NewDefaultSchedule creates the always-active periodic schedule that is
// synthesized for sources persisted before multi-schedule support.
func NewDefaultSchedule() Schedule {
	return Schedule{
		ID:              uuid.NewString(),
		CalendarType:    CalendarAlways,
		IntervalType:    IntervalPeriodic,
		Enabled:         true,
		IntervalMinutes: DefaultIntervalMinutes,
		Hour:            9,
		EnabledDays:     AllDays,
		WeekParity:      WeekParityBoth,
	}
}

// Interval returns the periodic interval as a duration, clamped to the
// allowed cadence bounds.
func (s Schedule) Interval() time.Duration {
	minutes := s.IntervalMinutes
	if minutes < MinIntervalMinutes {
		minutes = MinIntervalMinutes
	}
	if minutes > MaxIntervalMinutes {
		minutes = MaxIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// DayEnabled reports whether the weekday bit for d is set.
func (s Schedule) DayEnabled(d time.Weekday) bool {
	return s.EnabledDays&(1<<d) != 0
}

// Clone returns a copy of the schedule with a fresh identity.
func (s Schedule) Clone() Schedule {
	c := s
	c.ID = uuid.NewString()
	return c
}

// MarshalScheduleList serializes schedules as a JSON array of flat records,
// the interchange format used by source export and legacy storage.
func MarshalScheduleList(schedules []Schedule) (string, error) {
	if len(schedules) == 0 {
		return "", nil
	}
	data, err := json.Marshal(schedules)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalScheduleList parses a JSON schedule array. An empty input yields
// an empty list; callers needing the compatibility default use
// NewDefaultSchedule explicitly at migration time.
func UnmarshalScheduleList(raw string) ([]Schedule, error) {
	if raw == "" {
		return nil, nil
	}
	var schedules []Schedule
	if err := json.Unmarshal([]byte(raw), &schedules); err != nil {
		return nil, err
	}
	for i := range schedules {
		if schedules[i].ID == "" {
			schedules[i].ID = uuid.NewString()
		}
	}
	return schedules, nil
}
