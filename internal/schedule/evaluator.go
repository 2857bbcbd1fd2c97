// Package schedule evaluates a source's schedule set against the clock.
// All functions are pure: they take the schedule list, the last check time
// and the current time, and never touch shared state.
package schedule

import (
	"time"

	"github.com/sitevigil/sitevigil/internal/models"
)

const (
	// weeklyScanDays covers one full even/odd week-parity cycle.
	weeklyScanDays = 14

	// fixedHourTolerance is the window around a fixed-hour trigger inside
	// which an opportunistic check still counts as due.
	fixedHourTolerance = 5 * time.Minute

	// fixedHourSuppression blocks a fixed-hour re-trigger when a check
	// already ran recently. Inherited behavior, kept as-is.
	fixedHourSuppression = time.Hour
)

// NextTrigger computes the earliest future trigger across all enabled
// schedules. Multiple schedules combine with OR semantics, so the minimum
// wins. The second return is false when no schedule can ever fire again.
func NextTrigger(schedules []models.Schedule, lastCheck, now time.Time) (time.Time, bool) {
	var earliest time.Time
	found := false

	for i := range schedules {
		s := &schedules[i]
		if !s.Enabled {
			continue
		}
		next, ok := nextForSchedule(s, lastCheck, now)
		if !ok {
			continue
		}
		if !found || next.Before(earliest) {
			earliest = next
			found = true
		}
	}

	return earliest, found
}

// IsDue reports whether any enabled schedule considers the source due right
// now. It is used for opportunistic triggers outside the planned wake-ups.
func IsDue(schedules []models.Schedule, lastCheck, now time.Time) bool {
	for i := range schedules {
		s := &schedules[i]
		if !s.Enabled {
			continue
		}
		if !calendarValidOn(s, now) {
			continue
		}

		switch s.IntervalType {
		case models.IntervalFixedHour:
			scheduled := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
			delta := now.Sub(scheduled)
			if delta < 0 {
				delta = -delta
			}
			if delta > fixedHourTolerance {
				continue
			}
			if !lastCheck.IsZero() && now.Sub(lastCheck) < fixedHourSuppression {
				continue
			}
			return true
		default:
			if lastCheck.IsZero() || now.Sub(lastCheck) >= s.Interval() {
				return true
			}
		}
	}
	return false
}

// nextForSchedule resolves the calendar to the earliest valid date, then
// applies the schedule's interval rule on top of it.
func nextForSchedule(s *models.Schedule, lastCheck, now time.Time) (time.Time, bool) {
	validDate, ok := resolveCalendarDate(s, now)
	if !ok {
		return time.Time{}, false
	}

	switch s.IntervalType {
	case models.IntervalFixedHour:
		return nextFixedHour(s, validDate, now)
	default:
		return nextPeriodic(s, validDate, lastCheck, now)
	}
}

func nextPeriodic(s *models.Schedule, validDate time.Time, lastCheck, now time.Time) (time.Time, bool) {
	interval := s.Interval()

	if !sameDay(validDate, now) {
		// Calendar opens on a future date; the first run is one interval
		// past its start of day.
		return startOfDay(validDate).Add(interval), true
	}

	candidate := now.Add(interval)
	if !lastCheck.IsZero() {
		fromLast := lastCheck.Add(interval)
		if !fromLast.Before(now) {
			candidate = fromLast
		}
	}

	if calendarValidOn(s, candidate) {
		return candidate, true
	}

	// The interval crossed into a day the calendar excludes. Re-resolve
	// from the following day and measure from its start.
	next, ok := resolveCalendarDate(s, startOfDay(candidate).AddDate(0, 0, 1))
	if !ok {
		return time.Time{}, false
	}
	return startOfDay(next).Add(interval), true
}

func nextFixedHour(s *models.Schedule, validDate, now time.Time) (time.Time, bool) {
	at := time.Date(validDate.Year(), validDate.Month(), validDate.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	if at.After(now) {
		return at, true
	}

	next, ok := resolveCalendarDate(s, startOfDay(validDate).AddDate(0, 0, 1))
	if !ok {
		return time.Time{}, false
	}
	return time.Date(next.Year(), next.Month(), next.Day(), s.Hour, s.Minute, 0, 0, now.Location()), true
}

// resolveCalendarDate finds the earliest date at or after from on which the
// schedule's calendar type permits a check. The returned time carries only a
// meaningful date component.
func resolveCalendarDate(s *models.Schedule, from time.Time) (time.Time, bool) {
	switch s.CalendarType {
	case models.CalendarSelectedDay:
		if s.SelectedDate.IsZero() {
			return time.Time{}, false
		}
		if sameDay(s.SelectedDate, from) || startOfDay(s.SelectedDate).After(from) {
			if startOfDay(s.SelectedDate).After(from) {
				return s.SelectedDate, true
			}
			return from, true
		}
		return time.Time{}, false

	case models.CalendarDateRange:
		if s.FromDate.IsZero() || s.ToDate.IsZero() {
			return time.Time{}, false
		}
		if from.After(endOfDay(s.ToDate)) {
			return time.Time{}, false
		}
		if from.Before(startOfDay(s.FromDate)) {
			return s.FromDate, true
		}
		return from, true

	case models.CalendarWeekly:
		for i := 0; i < weeklyScanDays; i++ {
			day := from.AddDate(0, 0, i)
			if s.DayEnabled(day.Weekday()) && weekParityMatches(s.WeekParity, day) {
				return day, true
			}
		}
		return time.Time{}, false

	default: // CalendarAlways
		return from, true
	}
}

// calendarValidOn checks whether the calendar type permits a check on t's
// date without scanning forward.
func calendarValidOn(s *models.Schedule, t time.Time) bool {
	switch s.CalendarType {
	case models.CalendarSelectedDay:
		return !s.SelectedDate.IsZero() && sameDay(s.SelectedDate, t)
	case models.CalendarDateRange:
		if s.FromDate.IsZero() || s.ToDate.IsZero() {
			return false
		}
		return !t.Before(startOfDay(s.FromDate)) && !t.After(endOfDay(s.ToDate))
	case models.CalendarWeekly:
		return s.DayEnabled(t.Weekday()) && weekParityMatches(s.WeekParity, t)
	default:
		return true
	}
}

func weekParityMatches(parity models.WeekParity, t time.Time) bool {
	switch parity {
	case models.WeekParityEven:
		_, week := t.ISOWeek()
		return week%2 == 0
	case models.WeekParityOdd:
		_, week := t.ISOWeek()
		return week%2 == 1
	default:
		return true
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
