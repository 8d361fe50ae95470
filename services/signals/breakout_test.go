package signals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
)

func TestVolatilityContraction(t *testing.T) {
	// 15 wide-range bars followed by 10 tight bars shrink the ATR well
	// below 60% of its value five bars earlier.
	s := models.NewSeries("TEST")
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c := decimal.NewFromInt(100)
	for i := 0; i < 25; i++ {
		band := decimal.NewFromInt(5)
		if i >= 15 {
			band = decimal.NewFromFloat(0.5)
		}
		_ = s.Append(models.Bar{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c.Add(band),
			Low:    c.Sub(band),
			Close:  c,
			Volume: 1000,
		})
	}

	sig := (&VolatilityContraction{}).Evaluate(s)
	if sig == nil || sig.Kind != KindVolatilityContraction {
		t.Fatalf("tightening series: got %+v, want volatility_contraction", sig)
	}
}

func TestVolatilityContractionStableNoSignal(t *testing.T) {
	if sig := (&VolatilityContraction{}).Evaluate(seriesFromCloses(
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
		100, 100, 100, 100, 100)); sig != nil {
		t.Errorf("flat-volatility series fired %s", sig.Kind)
	}
}
