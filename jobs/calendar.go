package jobs

import (
	"math"
	"time"

	"github.com/jinzhu/now"
)

// Calendar is the business day boundary policy. Every date comparison the
// jobs make goes through it so the timezone stays a single decision.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	return c.loc
}

// StartOfDay is local midnight of the calendar day t falls on
func (c Calendar) StartOfDay(t time.Time) time.Time {
	return now.With(t.In(c.loc)).BeginningOfDay()
}

// DayWindow returns the half-open window [start, end) of the day that lies
// offset days after the day of today. Negative offsets look back.
func (c Calendar) DayWindow(today time.Time, offset int) (time.Time, time.Time) {
	start := c.StartOfDay(today).AddDate(0, 0, offset)
	return start, start.AddDate(0, 0, 1)
}

// DaysUntil is ceil((target - start of today) / 24h). A target earlier
// today yields 0, yesterday -1.
func (c Calendar) DaysUntil(target, today time.Time) int {
	diff := target.Sub(c.StartOfDay(today))
	return int(math.Ceil(diff.Hours() / 24))
}

// FormatDayMonth renders t as DD/MM in the business timezone
func (c Calendar) FormatDayMonth(t time.Time) string {
	return t.In(c.loc).Format("02/01")
}
