package registo

import "time"

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CandidateDates walks every calendar date from today through
// min(today+windowDays, constraints.MaxDate) inclusive and keeps those
// the widget would let a visitor pick: weekday not disabled, ISO date
// not blacked out. The widget numbers weekdays Sunday=0, which is the
// same convention as time.Weekday, so the comparison is direct.
//
// The result is fully materialized, ascending; callers iterate it with
// progress reporting and need its length up front.
func CandidateDates(c Constraints, today time.Time, windowDays int) []time.Time {
	start := midnight(today)
	end := start.AddDate(0, 0, windowDays)
	if !c.MaxDate.IsZero() {
		maxDate := midnight(c.MaxDate)
		if maxDate.Before(end) {
			end = maxDate
		}
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.DisabledWeekdays[int(d.Weekday())] {
			continue
		}
		if c.BlackoutDates[d.Format("2006-01-02")] {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
