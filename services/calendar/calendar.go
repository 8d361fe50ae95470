// Package calendar decides whether a polling cycle should run at all: either
// because a monitored market is inside its local open window, or, in the
// time-sliced mode, because the current minute matches a scheduled strategy
// slot.
package calendar

import (
	"fmt"
	"log"
	"time"
)

// ClockTime is a local wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// Market describes one monitored exchange session.
type Market struct {
	Name     string
	Location *time.Location
	Open     ClockTime
	Close    ClockTime
	Holidays map[string]bool // local dates, "2006-01-02"
}

// IsOpen reports whether the market is open at the given instant: a local
// weekday, not a holiday, and inside the open/close window (inclusive).
func (m Market) IsOpen(now time.Time) bool {
	local := now.In(m.Location)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if m.Holidays[local.Format("2006-01-02")] {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= m.Open.minutes() && minutes <= m.Close.minutes()
}

// Calendar gates cycles on the union of monitored markets.
type Calendar struct {
	Markets []Market
}

// AnyOpen reports whether at least one monitored market is open.
func (c Calendar) AnyOpen(now time.Time) bool {
	for _, m := range c.Markets {
		if m.IsOpen(now) {
			return true
		}
	}
	return false
}

// DefaultCalendar monitors the Tokyo and New York sessions with the embedded
// holiday tables. Tokyo is gated 08:30-15:00 JST and New York 09:00-15:30
// local time.
func DefaultCalendar() (Calendar, error) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return Calendar{}, fmt.Errorf("load Asia/Tokyo: %w", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		return Calendar{}, fmt.Errorf("load America/New_York: %w", err)
	}

	return Calendar{Markets: []Market{
		{
			Name:     "tokyo",
			Location: tokyo,
			Open:     ClockTime{8, 30},
			Close:    ClockTime{15, 0},
			Holidays: japanHolidays,
		},
		{
			Name:     "new_york",
			Location: newYork,
			Open:     ClockTime{9, 0},
			Close:    ClockTime{15, 30},
			Holidays: usHolidays,
		},
	}}, nil
}

// LogGate logs why a cycle is being skipped; callers use it for the
// observability line when AnyOpen is false.
func (c Calendar) LogGate(now time.Time) {
	for _, m := range c.Markets {
		local := now.In(m.Location)
		log.Printf("Market %s closed at local time %s", m.Name, local.Format("Mon 15:04"))
	}
}
