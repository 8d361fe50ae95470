package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock_alert_backend/services/signals"
)

// SlotTolerance is how far (in minutes) the current time may sit from a slot
// and still match it.
const SlotTolerance = 2

// Slot binds one local clock minute to a named strategy.
type Slot struct {
	At       ClockTime
	Strategy signals.StrategyKind
}

// SlotTable maps specific local clock times to the strategy active at that
// time. It drives the time-sliced mode: one evaluation per invocation, and a
// tick with no matching slot skips the whole cycle.
type SlotTable struct {
	Location *time.Location
	Slots    []Slot
}

// Active returns the strategy for the slot matching now within the
// tolerance, if any.
func (t SlotTable) Active(now time.Time) (signals.StrategyKind, bool) {
	local := now.In(t.Location)
	minutes := local.Hour()*60 + local.Minute()
	for _, s := range t.Slots {
		diff := minutes - s.At.minutes()
		if diff < 0 {
			diff = -diff
		}
		if diff <= SlotTolerance {
			return s.Strategy, true
		}
	}
	return "", false
}

// ParseSlotTable parses "HH:MM=strategy,HH:MM=strategy" into a table. Every
// strategy name must resolve against the dispatch table.
func ParseSlotTable(raw string, loc *time.Location) (*SlotTable, error) {
	table := &SlotTable{Location: loc}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed slot %q, want HH:MM=strategy", part)
		}
		at, err := parseClock(kv[0])
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", part, err)
		}
		kind := signals.StrategyKind(strings.TrimSpace(kv[1]))
		if _, err := signals.New(kind); err != nil {
			return nil, fmt.Errorf("slot %q: %w", part, err)
		}
		table.Slots = append(table.Slots, Slot{At: at, Strategy: kind})
	}
	if len(table.Slots) == 0 {
		return nil, fmt.Errorf("slot table is empty")
	}
	return table, nil
}

// parseClock parses "HH:MM".
func parseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("malformed clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("bad minute in %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
