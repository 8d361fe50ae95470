package signals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
	"stock_alert_backend/services/analysis"
)

// Volume breakout thresholds.
var (
	breakoutVolumeRatio = decimal.NewFromFloat(1.5)
	breakoutRSIFloor    = decimal.NewFromInt(55)
)

const breakoutWindow = 10

// VolumeBreakout fires when the current bar's volume exceeds a multiple of
// its rolling average while price clears the prior window high with RSI
// confirmation.
type VolumeBreakout struct{}

func (v *VolumeBreakout) Name() string { return "volume_breakout" }

func (v *VolumeBreakout) Evaluate(s *models.Series) *Signal {
	if s.Len() < breakoutWindow+1 {
		return nil
	}
	last, _ := s.Last()
	prior := s.Bars[:s.Len()-1]

	avgVol, ok := analysis.MeanVolume(prior, breakoutWindow)
	if !ok || avgVol.IsZero() {
		return nil
	}
	priorHigh, ok := analysis.HighestHigh(prior, breakoutWindow)
	if !ok {
		return nil
	}
	rsi, ok := analysis.RSI(s.Closes(), rsiPeriod)
	if !ok {
		return nil
	}

	volRatio := decimal.NewFromInt(last.Volume).Div(avgVol)
	if volRatio.GreaterThan(breakoutVolumeRatio) &&
		last.Close.GreaterThan(priorHigh) &&
		rsi.GreaterThan(breakoutRSIFloor) {
		return &Signal{
			Kind: KindVolumeBreakout,
			Detail: fmt.Sprintf("breakout: volume %sx %d-bar average, close above prior high %s, RSI %s",
				volRatio.StringFixed(2), breakoutWindow, priorHigh.StringFixed(2), rsi.StringFixed(1)),
		}
	}
	return nil
}

// Volatility contraction thresholds.
var atrContractionRatio = decimal.NewFromFloat(0.6)

const (
	atrPeriod        = 14
	atrLookbackShift = 5
)

// VolatilityContraction fires when the 14-period ATR drops below a fraction
// of its value a few bars earlier.
type VolatilityContraction struct{}

func (v *VolatilityContraction) Name() string { return "volatility_contraction" }

func (v *VolatilityContraction) Evaluate(s *models.Series) *Signal {
	atrs := analysis.ATRSeries(s.Bars, atrPeriod)
	if len(atrs) < atrLookbackShift+1 {
		return nil
	}
	current := atrs[len(atrs)-1]
	earlier := atrs[len(atrs)-1-atrLookbackShift]
	if earlier.IsZero() {
		return nil
	}
	if current.LessThan(earlier.Mul(atrContractionRatio)) {
		return &Signal{
			Kind: KindVolatilityContraction,
			Detail: fmt.Sprintf("ATR squeeze: %s vs %s %d bars ago",
				current.StringFixed(3), earlier.StringFixed(3), atrLookbackShift),
		}
	}
	return nil
}

// Closing surge thresholds.
var closingSurgeRatio = decimal.NewFromFloat(2.0)

const closingSurgeWindow = 20

// ClosingSurge fires when the latest bar's volume runs well above its 20-bar
// rolling average. It is intended for the end-of-session slot in the
// time-sliced schedule.
type ClosingSurge struct{}

func (c *ClosingSurge) Name() string { return "closing_surge" }

func (c *ClosingSurge) Evaluate(s *models.Series) *Signal {
	if s.Len() < closingSurgeWindow+1 {
		return nil
	}
	last, _ := s.Last()
	prior := s.Bars[:s.Len()-1]

	avgVol, ok := analysis.MeanVolume(prior, closingSurgeWindow)
	if !ok || avgVol.IsZero() {
		return nil
	}
	ratio := decimal.NewFromInt(last.Volume).Div(avgVol)
	if ratio.GreaterThan(closingSurgeRatio) {
		return &Signal{
			Kind: KindClosingSurge,
			Detail: fmt.Sprintf("closing surge: volume %sx %d-bar average",
				ratio.StringFixed(2), closingSurgeWindow),
		}
	}
	return nil
}
