package namecache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestResolver(baseURL string) *Resolver {
	r := NewResolver(context.Background(), "")
	r.baseURL = baseURL
	return r
}

func TestDisplayNameMemoizes(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		sym := r.URL.Query().Get("symbols")
		fmt.Fprintf(w, `{"quoteResponse":{"result":[{"symbol":%q,"longName":"Apple Inc.","shortName":"Apple"}],"error":null}}`, sym)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	ctx := context.Background()

	if name := r.DisplayName(ctx, "AAPL"); name != "Apple Inc." {
		t.Errorf("DisplayName = %q, want Apple Inc.", name)
	}
	if name := r.DisplayName(ctx, "AAPL"); name != "Apple Inc." {
		t.Errorf("second DisplayName = %q", name)
	}
	if requests != 1 {
		t.Errorf("quote API hit %d times, want 1", requests)
	}
}

func TestDisplayNameFallsBackToShortName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[{"symbol":"7203.T","longName":"","shortName":"TOYOTA MOTOR"}],"error":null}}`)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	if name := r.DisplayName(context.Background(), "7203.T"); name != "TOYOTA MOTOR" {
		t.Errorf("DisplayName = %q, want short name fallback", name)
	}
}

func TestDisplayNameFailureYieldsPlaceholder(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	ctx := context.Background()

	if name := r.DisplayName(ctx, "MSFT"); name != PlaceholderName {
		t.Errorf("DisplayName = %q, want placeholder", name)
	}
	// The failure is memoized so a busy cycle does not hammer the API.
	r.DisplayName(ctx, "MSFT")
	if requests != 1 {
		t.Errorf("quote API hit %d times, want 1", requests)
	}
}
