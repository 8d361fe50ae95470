// Package marketdata acquires recent OHLCV bars from the Yahoo Finance chart
// API in bounded batches, with per-symbol retry/backoff and a periodic
// cooldown to stay under the provider's implicit rate limit.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock_alert_backend/models"
	"stock_alert_backend/services/symbols"
)

// ChartAPIBaseURL is the Yahoo Finance v8 chart endpoint.
const ChartAPIBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a Fetcher. Zero values fall back to the defaults the
// provider is known to tolerate.
type Options struct {
	BaseURL       string
	BatchSize     int           // symbols per batch (default 10)
	Concurrency   int           // worker pool bound (default 20)
	CooldownEvery int           // pause after this many successes (default 100)
	CooldownPause time.Duration // pause length (default 5s)
	Lookback      string        // chart range (default "2d")
	Interval      string        // bar interval (default "5m")
	Retry         RetryPolicy   // default 3 attempts, 1s base delay
	HTTPTimeout   time.Duration // per-request timeout (default 30s)
}

// Fetcher pulls price series for a symbol universe.
type Fetcher struct {
	httpClient *http.Client
	opts       Options
}

// NewFetcher creates a fetcher, applying defaults to unset options.
func NewFetcher(opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = ChartAPIBaseURL
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 20
	}
	if opts.CooldownEvery < 1 {
		opts.CooldownEvery = 100
	}
	if opts.CooldownPause <= 0 {
		opts.CooldownPause = 5 * time.Second
	}
	if opts.Lookback == "" {
		opts.Lookback = "2d"
	}
	if opts.Interval == "" {
		opts.Interval = "5m"
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.HTTPTimeout},
		opts:       opts,
	}
}

// Fetch acquires a series for every requested symbol. The result map always
// contains an entry per symbol; nil marks a symbol whose acquisition failed
// or returned no usable bars. Failures never abort the cycle; absent symbols
// are logged in one aggregate line.
func (f *Fetcher) Fetch(ctx context.Context, syms []symbols.Symbol) map[symbols.Symbol]*models.Series {
	result := make(map[symbols.Symbol]*models.Series, len(syms))
	var mu sync.Mutex

	successes := 0
	cooldowns := 0

	for _, batch := range chunkSymbols(syms, f.opts.BatchSize) {
		if ctx.Err() != nil {
			break
		}

		sem := make(chan struct{}, f.opts.Concurrency)
		var wg sync.WaitGroup
		for _, sym := range batch {
			wg.Add(1)
			go func(sym symbols.Symbol) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				series := f.fetchWithRetry(ctx, sym)
				mu.Lock()
				result[sym] = series
				if series != nil {
					successes++
				}
				mu.Unlock()
			}(sym)
		}
		wg.Wait()

		// Rate-limit cooldown: after every CooldownEvery successes, pause
		// before the next batch. Interruptible by shutdown.
		if successes/f.opts.CooldownEvery > cooldowns {
			cooldowns = successes / f.opts.CooldownEvery
			log.Printf("Fetched %d series, cooling down for %s", successes, f.opts.CooldownPause)
			if err := sleepCtx(ctx, f.opts.CooldownPause); err != nil {
				break
			}
		}
	}

	// Guarantee an entry for every requested symbol even on early exit.
	var absent []symbols.Symbol
	for _, sym := range syms {
		if result[sym] == nil {
			result[sym] = nil
			absent = append(absent, sym)
		}
	}
	if len(absent) > 0 {
		log.Printf("Fetch failed for %d of %d symbols: %v", len(absent), len(syms), absent)
	}
	log.Printf("Fetch completed: %d of %d symbols acquired", successes, len(syms))

	return result
}

// fetchWithRetry runs one symbol's acquisition under the retry policy.
// Exhausted retries yield nil, never an error escaping the cycle.
func (f *Fetcher) fetchWithRetry(ctx context.Context, sym symbols.Symbol) *models.Series {
	var series *models.Series
	err := f.opts.Retry.Do(ctx, func() error {
		s, err := f.fetchOne(ctx, sym)
		if err != nil {
			return err
		}
		series = s
		return nil
	})
	if err != nil {
		log.Printf("Giving up on %s after %d attempts: %v", sym, f.opts.Retry.MaxAttempts, err)
		return nil
	}
	return series
}

// chart API response shapes; null entries mark missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// fetchOne performs a single chart request for one symbol.
func (f *Fetcher) fetchOne(ctx context.Context, sym symbols.Symbol) (*models.Series, error) {
	u := f.opts.BaseURL + url.PathEscape(string(sym)) +
		"?range=" + url.QueryEscape(f.opts.Lookback) +
		"&interval=" + url.QueryEscape(f.opts.Interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", sym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chart API error for %s (status %d): %s",
			sym, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response for %s: %w", sym, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", sym, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty result for %s", sym)
	}

	res := parsed.Chart.Result[0]
	quote := res.Indicators.Quote[0]

	series := models.NewSeries(string(sym))
	for i, ts := range res.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil {
			continue // missing bar
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		bar := models.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   decimal.NewFromFloat(*quote.Open[i]),
			High:   decimal.NewFromFloat(*quote.High[i]),
			Low:    decimal.NewFromFloat(*quote.Low[i]),
			Close:  decimal.NewFromFloat(*quote.Close[i]),
			Volume: volume,
		}
		if err := series.Append(bar); err != nil {
			continue // out-of-order bar, drop it
		}
	}

	if series.Len() == 0 {
		return nil, fmt.Errorf("no usable bars for %s", sym)
	}
	return series, nil
}

// chunkSymbols splits the universe into fixed-size batches.
func chunkSymbols(syms []symbols.Symbol, size int) [][]symbols.Symbol {
	var chunks [][]symbols.Symbol
	for i := 0; i < len(syms); i += size {
		end := i + size
		if end > len(syms) {
			end = len(syms)
		}
		chunks = append(chunks, syms[i:end])
	}
	return chunks
}
