package signals

import (
	"fmt"

	"stock_alert_backend/models"
	"stock_alert_backend/services/analysis"
)

// MACDReversal detects a MACD/signal-line crossover on the latest bar.
type MACDReversal struct{}

func (m *MACDReversal) Name() string { return "macd_reversal" }

func (m *MACDReversal) Evaluate(s *models.Series) *Signal {
	closes := s.Closes()
	if len(closes) < 2 {
		return nil
	}

	macd, signal := analysis.MACDSeries(closes)
	last := len(macd) - 1

	prevDiff := macd[last-1].Sub(signal[last-1])
	currDiff := macd[last].Sub(signal[last])

	switch {
	case prevDiff.Sign() <= 0 && currDiff.Sign() > 0:
		return &Signal{
			Kind:   KindMACDReversal,
			Detail: fmt.Sprintf("bullish MACD cross: histogram %s", currDiff.StringFixed(4)),
		}
	case prevDiff.Sign() >= 0 && currDiff.Sign() < 0:
		return &Signal{
			Kind:   KindMACDReversal,
			Detail: fmt.Sprintf("bearish MACD cross: histogram %s", currDiff.StringFixed(4)),
		}
	}
	return nil
}
