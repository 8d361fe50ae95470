// Package signals turns price series into optional trading signals. Every
// strategy is a pure function over a series: it never mutates the series and
// returns nil (not an error) when data is missing or insufficient.
package signals

// Kind identifies the detected pattern. The kind, not the detail, is what
// gets persisted to notification history and deduplicated on.
type Kind string

const (
	KindGoldenCross           Kind = "golden_cross"
	KindDeadCross             Kind = "dead_cross"
	KindMomentumBuy           Kind = "momentum_buy"
	KindMomentumSell          Kind = "momentum_sell"
	KindTrendUp               Kind = "trend_up"
	KindTrendDown             Kind = "trend_down"
	KindVolumeBreakout        Kind = "volume_breakout"
	KindVolatilityContraction Kind = "volatility_contraction"
	KindMACDReversal          Kind = "macd_reversal"
	KindClosingSurge          Kind = "closing_surge"
)

// Signal strength qualifiers.
const (
	StrengthStrong = "strong"
	StrengthWeak   = "weak"
)

// Signal describes one fired pattern. Produced fresh each cycle and never
// persisted as a whole.
type Signal struct {
	Kind     Kind
	Detail   string
	Strength string
}

// IsBuySide reports whether the pattern leans toward buying.
func (s *Signal) IsBuySide() bool {
	switch s.Kind {
	case KindGoldenCross, KindMomentumBuy, KindTrendUp, KindVolumeBreakout, KindClosingSurge:
		return true
	}
	return false
}
