package order

import (
	"fmt"
	"time"
)

// numberLayout is the date bucket used in human-readable order numbers.
const numberLayout = "20060102"

// NumberFor formats the human-readable order identifier for the seq-th order
// of the day: ORD-YYYYMMDD-NNNN. The sequence is 1-based and zero-padded to
// four digits; days with more than 9999 orders keep growing the suffix.
func NumberFor(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format(numberLayout), seq)
}

// DayBounds returns the [start, end) window of the calendar day containing t,
// in t's location. Used to bucket the per-restaurant day count the number
// proposal is derived from.
func DayBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
