package core

import (
	"fmt"
	"time"
)

// MonthLayout is the layout of a month bucket key, e.g. "2024-03".
const MonthLayout = "2006-01"

// MonthKey returns the bucket key for the month containing t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ShiftMonth returns the first day of the month that is offset calendar
// months away from the month containing now. Negative offsets go back.
func ShiftMonth(now time.Time, offset int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, offset, 0)
}

// MonthLabel renders a human label such as "March 2024".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

func ParseMonth(key string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, key)
	}
	return t, nil
}
