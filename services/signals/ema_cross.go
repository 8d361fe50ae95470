package signals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
	"stock_alert_backend/services/analysis"
)

// Default EMA spans for the crossover pair.
const (
	DefaultFastSpan = 5
	DefaultSlowSpan = 12
)

// CrossStrengthGap is the fast/slow gap above which a cross is rated strong.
var CrossStrengthGap = decimal.NewFromFloat(1.0)

// EMACross detects golden/dead crosses of two exponential moving averages.
// A discrete state sign(fast-slow) is derived per bar; the signal fires when
// the last state transition is +2 (golden) or -2 (dead).
type EMACross struct {
	FastSpan int
	SlowSpan int
}

// NewEMACross creates the crossover strategy for the given spans.
func NewEMACross(fast, slow int) *EMACross {
	return &EMACross{FastSpan: fast, SlowSpan: slow}
}

func (e *EMACross) Name() string {
	return fmt.Sprintf("ema_cross_%d_%d", e.FastSpan, e.SlowSpan)
}

func (e *EMACross) Evaluate(s *models.Series) *Signal {
	closes := s.Closes()
	if len(closes) < 2 {
		return nil
	}

	fast := analysis.EMASeries(closes, e.FastSpan)
	slow := analysis.EMASeries(closes, e.SlowSpan)

	states := make([]int, len(closes))
	for i := range closes {
		switch cmp := fast[i].Cmp(slow[i]); {
		case cmp > 0:
			states[i] = 1
		case cmp < 0:
			states[i] = -1
		}
	}

	last := len(states) - 1
	transition := states[last] - states[last-1]

	gap := fast[last].Sub(slow[last]).Abs()
	strength := StrengthWeak
	if gap.GreaterThan(CrossStrengthGap) {
		strength = StrengthStrong
	}

	switch transition {
	case 2:
		return &Signal{
			Kind:     KindGoldenCross,
			Detail:   fmt.Sprintf("golden cross (%s): EMA%d crossed above EMA%d", strength, e.FastSpan, e.SlowSpan),
			Strength: strength,
		}
	case -2:
		return &Signal{
			Kind:     KindDeadCross,
			Detail:   fmt.Sprintf("dead cross (%s): EMA%d crossed below EMA%d", strength, e.FastSpan, e.SlowSpan),
			Strength: strength,
		}
	}
	return nil
}
