package notify

import (
	"fmt"
	"strings"
	"time"

	"stock_alert_backend/services/signals"
	"stock_alert_backend/services/symbols"
)

// jst is the timezone used for the detection timestamp in every message.
// FixedZone avoids depending on the host tzdata.
var jst = time.FixedZone("JST", 9*60*60)

// AlertLine is one symbol's entry in an outgoing email.
type AlertLine struct {
	Symbol symbols.Symbol
	Name   string
	Signal *signals.Signal
}

// AggregateSubject is the subject used for multi-signal digest mail.
const AggregateSubject = "Stock signal alert"

// singleSubjects maps a slot strategy to its dedicated mail subject.
var singleSubjects = map[signals.StrategyKind]string{
	signals.StrategyEMACross:              "EMA crossover alert",
	signals.StrategyRSIStochastic:         "RSI / Stochastic momentum alert",
	signals.StrategySMATrend:              "SMA trend alert",
	signals.StrategyVolumeBreakout:        "Volume breakout alert",
	signals.StrategyVolatilityContraction: "Volatility contraction alert",
	signals.StrategyMACDReversal:          "MACD reversal alert",
	signals.StrategyClosingSurge:          "Closing surge alert",
}

// ComposeAggregate builds a digest email covering every fired signal in one
// cycle. Lines are grouped into a domestic section (".T" suffix) and a US
// section, each line carrying the symbol, pattern, company name and a quote
// page link.
func ComposeAggregate(lines []AlertLine, now time.Time) (subject, body string) {
	var domestic, us []AlertLine
	for _, line := range lines {
		if strings.HasSuffix(string(line.Symbol), symbols.DomesticSuffix) {
			domestic = append(domestic, line)
		} else {
			us = append(us, line)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Detected at (JST): %s\n\n", now.In(jst).Format("2006-01-02 15:04:05"))

	if len(domestic) > 0 {
		b.WriteString("== Domestic stocks ==\n\n")
		writeLines(&b, domestic)
	}
	if len(us) > 0 {
		b.WriteString("== US stocks ==\n\n")
		writeLines(&b, us)
	}

	return AggregateSubject, b.String()
}

// ComposeSingle builds a mail for single-best slot mode, where the whole
// message reports one strategy's hits.
func ComposeSingle(lines []AlertLine, strategy signals.StrategyKind, now time.Time) (subject, body string) {
	subject, ok := singleSubjects[strategy]
	if !ok {
		subject = AggregateSubject
	}
	_, body = ComposeAggregate(lines, now)
	return subject, body
}

func writeLines(b *strings.Builder, lines []AlertLine) {
	for _, line := range lines {
		side := "sell side"
		if line.Signal.IsBuySide() {
			side = "buy side"
		}
		qualifier := side
		if line.Signal.Strength != "" {
			qualifier = line.Signal.Strength + ", " + side
		}
		fmt.Fprintf(b, "%s\n", line.Symbol)
		fmt.Fprintf(b, "%s (%s)\n", line.Signal.Detail, qualifier)
		if line.Name != "" {
			fmt.Fprintf(b, "%s\n", line.Name)
		}
		fmt.Fprintf(b, "https://finance.yahoo.co.jp/quote/%s\n\n", line.Symbol)
	}
}
