package symbols

import (
	"fmt"
	"log"
	"strings"

	"stock_alert_backend/models"
)

// Symbol is a canonical, exchange-suffixed ticker. Canonical form is the
// unique key for fetch, cache and dedup.
type Symbol string

// DomesticSuffix is appended to digit-leading tickers (Tokyo listings).
const DomesticSuffix = ".T"

// Normalize turns raw watchlist text into a canonical symbol: trims
// whitespace, rejects empty input, uppercases, and applies the exchange
// suffix rule. Digit-leading tickers get the domestic suffix, letter-leading
// tickers are used as-is, anything else is used as given.
func Normalize(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("empty symbol")
	}
	// Already suffixed (or otherwise exchange-qualified): use as given.
	if strings.ContainsRune(s, '.') {
		return Symbol(s), nil
	}
	if s[0] >= '0' && s[0] <= '9' {
		return Symbol(s + DomesticSuffix), nil
	}
	return Symbol(s), nil
}

// SplitLines normalizes a newline-delimited raw symbol list. Blank and
// malformed lines are skipped, duplicates are collapsed after normalization,
// and first-occurrence order is preserved.
func SplitLines(text string) []Symbol {
	var out []Symbol
	seen := make(map[Symbol]bool)
	for _, line := range strings.Split(text, "\n") {
		sym, err := Normalize(line)
		if err != nil {
			continue
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// Registry computes per-user effective symbol sets. Administrator symbols are
// broadcast to every standard user; administrators keep their own set only.
type Registry struct {
	maxUser  int
	maxAdmin int
}

// NewRegistry creates a registry with the per-role watchlist caps.
func NewRegistry(maxUser, maxAdmin int) *Registry {
	return &Registry{maxUser: maxUser, maxAdmin: maxAdmin}
}

// BuildEffectiveSets returns each user's effective symbol set keyed by user
// ID. For a standard user the set is own symbols followed by any broadcast
// symbols not already present; for an administrator it is the own set only.
// The per-role cap is enforced where the list is edited, not here: an
// oversized set is logged and processed in full.
func (r *Registry) BuildEffectiveSets(users []models.User) map[uint][]Symbol {
	own := make(map[uint][]Symbol, len(users))
	var broadcast []Symbol
	broadcastSeen := make(map[Symbol]bool)

	for _, u := range users {
		syms := SplitLines(u.Symbols)
		own[u.ID] = syms
		if u.IsAdmin() {
			for _, s := range syms {
				if !broadcastSeen[s] {
					broadcastSeen[s] = true
					broadcast = append(broadcast, s)
				}
			}
		}
	}

	sets := make(map[uint][]Symbol, len(users))
	for _, u := range users {
		syms := own[u.ID]

		cap := r.maxUser
		if u.IsAdmin() {
			cap = r.maxAdmin
		}
		if cap > 0 && len(syms) > cap {
			log.Printf("User %d (%s) has %d symbols, over the %d cap; processing full set",
				u.ID, u.Role, len(syms), cap)
		}

		if u.IsAdmin() {
			sets[u.ID] = syms
			continue
		}

		effective := make([]Symbol, len(syms))
		copy(effective, syms)
		present := make(map[Symbol]bool, len(syms))
		for _, s := range syms {
			present[s] = true
		}
		for _, s := range broadcast {
			if !present[s] {
				present[s] = true
				effective = append(effective, s)
			}
		}
		sets[u.ID] = effective
	}

	return sets
}

// Union flattens the effective sets into the cycle-wide fetch universe.
func Union(sets map[uint][]Symbol) []Symbol {
	var out []Symbol
	seen := make(map[Symbol]bool)
	for _, syms := range sets {
		for _, s := range syms {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
