package signals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
	"stock_alert_backend/services/analysis"
)

// RSI/stochastic thresholds.
var (
	rsiOversold     = decimal.NewFromInt(30)
	rsiOverbought   = decimal.NewFromInt(70)
	rsiMidline      = decimal.NewFromInt(50)
	stochOversold   = decimal.NewFromInt(20)
	stochOverbought = decimal.NewFromInt(80)
	stochMidline    = decimal.NewFromInt(50)
)

const (
	rsiPeriod   = 14
	stochPeriod = 14
	stochSmooth = 3
)

// RSIStochastic combines a 14-period RSI with a 14/3 stochastic %K. Deep
// oversold/overbought combinations fire a momentum signal; the looser 50/50
// combination fires with a weak qualifier.
type RSIStochastic struct{}

func (r *RSIStochastic) Name() string { return "rsi_stochastic" }

func (r *RSIStochastic) Evaluate(s *models.Series) *Signal {
	rsi, ok := analysis.RSI(s.Closes(), rsiPeriod)
	if !ok {
		return nil
	}
	k, ok := analysis.StochasticK(s.Bars, stochPeriod, stochSmooth)
	if !ok {
		return nil
	}

	switch {
	case rsi.LessThan(rsiOversold) && k.LessThan(stochOversold):
		return &Signal{
			Kind:     KindMomentumBuy,
			Detail:   fmt.Sprintf("oversold: RSI %s, %%K %s", rsi.StringFixed(1), k.StringFixed(1)),
			Strength: StrengthStrong,
		}
	case rsi.GreaterThan(rsiOverbought) && k.GreaterThan(stochOverbought):
		return &Signal{
			Kind:     KindMomentumSell,
			Detail:   fmt.Sprintf("overbought: RSI %s, %%K %s", rsi.StringFixed(1), k.StringFixed(1)),
			Strength: StrengthStrong,
		}
	case rsi.LessThan(rsiMidline) && k.LessThan(stochMidline):
		return &Signal{
			Kind:     KindMomentumBuy,
			Detail:   fmt.Sprintf("leaning weak: RSI %s, %%K %s", rsi.StringFixed(1), k.StringFixed(1)),
			Strength: StrengthWeak,
		}
	}
	return nil
}

// SMATrend signals trend continuation from short/long SMAs confirmed by RSI
// relative to the midline: SMA(5) over SMA(10) with RSI above 50 continues
// up, the mirror continues down.
type SMATrend struct{}

const (
	smaShortPeriod = 5
	smaLongPeriod  = 10
)

func (t *SMATrend) Name() string { return "sma_trend" }

func (t *SMATrend) Evaluate(s *models.Series) *Signal {
	closes := s.Closes()
	short, ok := analysis.SMA(closes, smaShortPeriod)
	if !ok {
		return nil
	}
	long, ok := analysis.SMA(closes, smaLongPeriod)
	if !ok {
		return nil
	}
	rsi, ok := analysis.RSI(closes, rsiPeriod)
	if !ok {
		return nil
	}

	switch {
	case short.GreaterThan(long) && rsi.GreaterThan(rsiMidline):
		return &Signal{
			Kind:   KindTrendUp,
			Detail: fmt.Sprintf("uptrend continuation: SMA%d > SMA%d, RSI %s", smaShortPeriod, smaLongPeriod, rsi.StringFixed(1)),
		}
	case short.LessThan(long) && rsi.LessThan(rsiMidline):
		return &Signal{
			Kind:   KindTrendDown,
			Detail: fmt.Sprintf("downtrend continuation: SMA%d < SMA%d, RSI %s", smaShortPeriod, smaLongPeriod, rsi.StringFixed(1)),
		}
	}
	return nil
}
