package schedule

import "time"

// NextOccurrence computes the date a recurrence fires after current,
// or ok=false when the recurrence terminates. It is a pure function:
// no side effects, and an unrecognized rule type terminates rather
// than erroring.
//
// Termination conditions:
//   - unknown rule type or missing rule
//   - MaxOccurrences set and the occurrence firing now is the last
//     one allowed (CurrentOccurrence+1 >= MaxOccurrences)
//   - EndDate set and the computed next date falls after it
func NextOccurrence(current time.Time, rule *Recurrence) (time.Time, bool) {
	if rule == nil {
		return time.Time{}, false
	}

	if rule.MaxOccurrences > 0 && rule.CurrentOccurrence+1 >= rule.MaxOccurrences {
		return time.Time{}, false
	}

	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	var next time.Time
	switch rule.Type {
	case RecurrenceDaily:
		next = current.AddDate(0, 0, interval)
	case RecurrenceWeekly:
		next = current.AddDate(0, 0, interval*7)
	case RecurrenceMonthly:
		next = addMonthsClamped(current, interval)
	case RecurrenceYearly:
		next = addMonthsClamped(current, interval*12)
	default:
		return time.Time{}, false
	}

	if rule.EndDate != nil && next.After(*rule.EndDate) {
		return time.Time{}, false
	}

	return next, true
}

// addMonthsClamped performs calendar month arithmetic with the day of
// month clamped to the target month's last day, so Jan 31 + 1 month is
// Feb 29 in a leap year and Feb 28 otherwise, never a rollover into
// March.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}

	if last := daysInMonth(y, time.Month(m)); day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(y, time.Month(m), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
