// Package analysis provides technical indicator calculations over price
// series. Every indicator is a pure function: it never mutates its input and
// reports insufficient data through an ok flag instead of an error.
package analysis

import (
	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
)

var (
	oneHundred = decimal.NewFromInt(100)
)

// SMA returns the simple moving average of the last period closes.
func SMA(closes []decimal.Decimal, period int) (decimal.Decimal, bool) {
	if period < 1 || len(closes) < period {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, c := range closes[len(closes)-period:] {
		sum = sum.Add(c)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// EMASeries returns the exponential moving average of closes for the given
// span, one value per input bar. The first value seeds from the first close.
func EMASeries(closes []decimal.Decimal, span int) []decimal.Decimal {
	if span < 1 || len(closes) == 0 {
		return nil
	}
	multiplier := decimal.NewFromFloat(2.0 / float64(span+1))
	out := make([]decimal.Decimal, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i].Sub(out[i-1]).Mul(multiplier).Add(out[i-1])
	}
	return out
}

// EMA returns the latest exponential moving average value for the span.
func EMA(closes []decimal.Decimal, span int) (decimal.Decimal, bool) {
	if span < 1 || len(closes) < span {
		return decimal.Zero, false
	}
	series := EMASeries(closes, span)
	return series[len(series)-1], true
}

// RSI returns the relative strength index over the given period, bounded
// 0-100. Needs period+1 closes.
func RSI(closes []decimal.Decimal, period int) (decimal.Decimal, bool) {
	if period < 1 || len(closes) < period+1 {
		return decimal.Zero, false
	}
	window := closes[len(closes)-period-1:]

	gains := decimal.Zero
	losses := decimal.Zero
	for i := 1; i < len(window); i++ {
		change := window[i].Sub(window[i-1])
		if change.GreaterThan(decimal.Zero) {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}

	if losses.IsZero() {
		return oneHundred, true
	}

	rs := gains.Div(losses)
	rsi := oneHundred.Sub(oneHundred.Div(decimal.NewFromInt(1).Add(rs)))
	return rsi, true
}

// StochasticK returns the stochastic %K over the given period, smoothed over
// the last smooth raw values (the usual 14/3 pairing).
func StochasticK(bars []models.Bar, period, smooth int) (decimal.Decimal, bool) {
	if period < 1 || smooth < 1 || len(bars) < period+smooth-1 {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for i := 0; i < smooth; i++ {
		end := len(bars) - i
		k, ok := rawStochK(bars[end-period : end])
		if !ok {
			return decimal.Zero, false
		}
		sum = sum.Add(k)
	}
	return sum.Div(decimal.NewFromInt(int64(smooth))), true
}

// rawStochK computes a single un-smoothed %K over the window.
func rawStochK(window []models.Bar) (decimal.Decimal, bool) {
	highest := window[0].High
	lowest := window[0].Low
	for _, b := range window {
		if b.High.GreaterThan(highest) {
			highest = b.High
		}
		if b.Low.LessThan(lowest) {
			lowest = b.Low
		}
	}
	spread := highest.Sub(lowest)
	if spread.IsZero() {
		return decimal.Zero, false
	}
	current := window[len(window)-1].Close
	return current.Sub(lowest).Div(spread).Mul(oneHundred), true
}

// ATRSeries returns the average true range per bar, one value for each bar
// from index period onward (rolling mean of the true range).
func ATRSeries(bars []models.Bar, period int) []decimal.Decimal {
	if period < 1 || len(bars) < period+1 {
		return nil
	}

	trs := make([]decimal.Decimal, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1]))
	}

	out := make([]decimal.Decimal, 0, len(trs)-period+1)
	p := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, tr := range trs {
		sum = sum.Add(tr)
		if i >= period {
			sum = sum.Sub(trs[i-period])
		}
		if i >= period-1 {
			out = append(out, sum.Div(p))
		}
	}
	return out
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(b, prev models.Bar) decimal.Decimal {
	hl := b.High.Sub(b.Low)
	hc := b.High.Sub(prev.Close).Abs()
	lc := b.Low.Sub(prev.Close).Abs()
	tr := hl
	if hc.GreaterThan(tr) {
		tr = hc
	}
	if lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}

// MACDSeries returns the MACD line and its signal line per bar, using the
// standard 12/26/9 spans.
func MACDSeries(closes []decimal.Decimal) (macd, signal []decimal.Decimal) {
	const (
		fastSpan   = 12
		slowSpan   = 26
		signalSpan = 9
	)
	if len(closes) == 0 {
		return nil, nil
	}
	fast := EMASeries(closes, fastSpan)
	slow := EMASeries(closes, slowSpan)
	macd = make([]decimal.Decimal, len(closes))
	for i := range closes {
		macd[i] = fast[i].Sub(slow[i])
	}
	signal = EMASeries(macd, signalSpan)
	return macd, signal
}

// MeanVolume returns the average volume over the last window bars.
func MeanVolume(bars []models.Bar, window int) (decimal.Decimal, bool) {
	if window < 1 || len(bars) < window {
		return decimal.Zero, false
	}
	var sum int64
	for _, b := range bars[len(bars)-window:] {
		sum += b.Volume
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(window))), true
}

// HighestHigh returns the highest high over the last window bars.
func HighestHigh(bars []models.Bar, window int) (decimal.Decimal, bool) {
	if window < 1 || len(bars) < window {
		return decimal.Zero, false
	}
	highest := bars[len(bars)-window].High
	for _, b := range bars[len(bars)-window:] {
		if b.High.GreaterThan(highest) {
			highest = b.High
		}
	}
	return highest, true
}
