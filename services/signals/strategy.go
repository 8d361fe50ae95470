package signals

import (
	"fmt"
	"sort"
	"strings"

	"stock_alert_backend/models"
)

// Strategy evaluates a price series and returns a signal, or nil when no
// pattern is present. Implementations must tolerate short or empty series.
type Strategy interface {
	Name() string
	Evaluate(s *models.Series) *Signal
}

// StrategyKind selects a strategy from the closed dispatch table.
type StrategyKind string

const (
	StrategyEMACross              StrategyKind = "ema_cross"
	StrategyRSIStochastic         StrategyKind = "rsi_stochastic"
	StrategySMATrend              StrategyKind = "sma_trend"
	StrategyVolumeBreakout        StrategyKind = "volume_breakout"
	StrategyVolatilityContraction StrategyKind = "volatility_contraction"
	StrategyMACDReversal          StrategyKind = "macd_reversal"
	StrategyClosingSurge          StrategyKind = "closing_surge"
)

// dispatch is the closed table of known strategies. All variants are known at
// compile time; there is no runtime registration.
var dispatch = map[StrategyKind]func() Strategy{
	StrategyEMACross:              func() Strategy { return NewEMACross(DefaultFastSpan, DefaultSlowSpan) },
	StrategyRSIStochastic:         func() Strategy { return &RSIStochastic{} },
	StrategySMATrend:              func() Strategy { return &SMATrend{} },
	StrategyVolumeBreakout:        func() Strategy { return &VolumeBreakout{} },
	StrategyVolatilityContraction: func() Strategy { return &VolatilityContraction{} },
	StrategyMACDReversal:          func() Strategy { return &MACDReversal{} },
	StrategyClosingSurge:          func() Strategy { return &ClosingSurge{} },
}

// New returns the strategy for a kind, or an error for an unknown kind.
func New(kind StrategyKind) (Strategy, error) {
	ctor, ok := dispatch[kind]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
	return ctor(), nil
}

// Kinds returns the known strategy kinds, sorted for stable output.
func Kinds() []StrategyKind {
	out := make([]StrategyKind, 0, len(dispatch))
	for k := range dispatch {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseList resolves a comma-separated list of strategy kinds.
func ParseList(raw string) ([]Strategy, error) {
	var out []Strategy
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		s, err := New(StrategyKind(name))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no strategies configured")
	}
	return out, nil
}
