package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Series is an ordered, time-indexed price series for one symbol. Bars are
// ascending by time with no duplicate timestamps. A Series lives only for the
// duration of one polling cycle; it is never persisted. Indicators are
// computed as pure transformations over the bars, never written back.
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries creates an empty series for a symbol.
func NewSeries(symbol string) *Series {
	return &Series{Symbol: symbol}
}

// Append adds a bar, enforcing ascending unique timestamps.
func (s *Series) Append(b Bar) error {
	if n := len(s.Bars); n > 0 && !b.Time.After(s.Bars[n-1].Time) {
		return fmt.Errorf("bar at %s is not after previous bar %s",
			b.Time.Format(time.RFC3339), s.Bars[len(s.Bars)-1].Time.Format(time.RFC3339))
	}
	s.Bars = append(s.Bars, b)
	return nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar.
func (s *Series) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close column in chronological order.
func (s *Series) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, 0, s.Len())
	for _, b := range s.Bars {
		closes = append(closes, b.Close)
	}
	return closes
}
