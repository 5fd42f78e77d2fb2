package registo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCandidateDatesWeekendAndBlackout(t *testing.T) {
	// a Saturday; tomorrow is both a Sunday and blacked out
	today := date(2025, time.January, 4)
	require.Equal(t, time.Saturday, today.Weekday())

	c := Constraints{
		DisabledWeekdays: map[int]bool{0: true},
		BlackoutDates:    map[string]bool{"2025-01-05": true},
	}
	dates := CandidateDates(c, today, 3)

	require.Equal(t, []time.Time{
		date(2025, time.January, 4),
		date(2025, time.January, 6),
		date(2025, time.January, 7),
	}, dates)
}

func TestCandidateDatesMaxDate(t *testing.T) {
	today := date(2025, time.January, 6)
	c := Constraints{
		DisabledWeekdays: map[int]bool{},
		BlackoutDates:    map[string]bool{},
		MaxDate:          date(2025, time.January, 8),
	}

	dates := CandidateDates(c, today, 30)
	require.Equal(t, []time.Time{
		date(2025, time.January, 6),
		date(2025, time.January, 7),
		date(2025, time.January, 8),
	}, dates)

	// a max date beyond the window must not extend it
	c.MaxDate = date(2025, time.March, 1)
	dates = CandidateDates(c, today, 2)
	require.Len(t, dates, 3)
}

func TestCandidateDatesProperties(t *testing.T) {
	today := date(2025, time.June, 2)
	c := Constraints{
		DisabledWeekdays: map[int]bool{2: true, 5: true},
		BlackoutDates: map[string]bool{
			"2025-06-09": true,
			"2025-06-16": true,
		},
		MaxDate: date(2025, time.June, 25),
	}

	dates := CandidateDates(c, today, 30)
	require.NotEmpty(t, dates)

	prev := time.Time{}
	for _, d := range dates {
		require.False(t, c.DisabledWeekdays[int(d.Weekday())], "weekday %v should be excluded", d)
		require.False(t, c.BlackoutDates[d.Format("2006-01-02")], "blackout %v should be excluded", d)
		require.False(t, d.Before(today))
		require.False(t, d.After(c.MaxDate))
		require.True(t, d.After(prev), "dates must be ascending")
		prev = d
	}
}

func TestCandidateDatesMidDayToday(t *testing.T) {
	// "today" arrives with a wall-clock time attached; the walk still
	// has to include today itself
	today := time.Date(2025, time.January, 6, 17, 45, 3, 0, time.UTC)
	dates := CandidateDates(Constraints{}, today, 1)

	require.Equal(t, []time.Time{
		date(2025, time.January, 6),
		date(2025, time.January, 7),
	}, dates)
}
