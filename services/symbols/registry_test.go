package symbols

import (
	"reflect"
	"testing"

	"stock_alert_backend/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Symbol
		wantErr bool
	}{
		{"letter leading", "AAPL", "AAPL", false},
		{"lowercase with whitespace", " aapl ", "AAPL", false},
		{"digit leading gets suffix", "7203", "7203.T", false},
		{"already suffixed", "7203.T", "7203.T", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"aapl", "7203", " msft ", "9984.T"} {
		once, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", raw, err)
		}
		twice, err := Normalize(string(once))
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)): %v", raw, err)
		}
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("7203\naapl\n\n  \n7203")
	want := []Symbol{"7203.T", "AAPL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLines = %v, want %v", got, want)
	}
}

func TestBuildEffectiveSets(t *testing.T) {
	users := []models.User{
		{ID: 1, Role: models.RoleUser, Symbols: "7203\naapl\n7203"},
		{ID: 2, Role: models.RoleAdmin, Symbols: "9984"},
	}

	sets := NewRegistry(100, 10000).BuildEffectiveSets(users)

	// Standard user gets own symbols first, then the broadcast set.
	want := []Symbol{"7203.T", "AAPL", "9984.T"}
	if !reflect.DeepEqual(sets[1], want) {
		t.Errorf("standard user effective set = %v, want %v", sets[1], want)
	}

	// Admin is not subject to the broadcast.
	if !reflect.DeepEqual(sets[2], []Symbol{"9984.T"}) {
		t.Errorf("admin effective set = %v, want [9984.T]", sets[2])
	}
}

func TestBroadcastSubsetOfEveryStandardUser(t *testing.T) {
	users := []models.User{
		{ID: 1, Role: models.RoleAdmin, Symbols: "9984\n6758"},
		{ID: 2, Role: models.RoleAdmin, Symbols: "msft"},
		{ID: 3, Role: models.RoleUser, Symbols: "aapl"},
		{ID: 4, Role: models.RoleUser, Symbols: ""},
	}

	sets := NewRegistry(100, 10000).BuildEffectiveSets(users)

	broadcast := []Symbol{"9984.T", "6758.T", "MSFT"}
	for _, uid := range []uint{3, 4} {
		have := make(map[Symbol]bool)
		for _, s := range sets[uid] {
			have[s] = true
		}
		for _, b := range broadcast {
			if !have[b] {
				t.Errorf("user %d missing broadcast symbol %s, set = %v", uid, b, sets[uid])
			}
		}
	}
}

func TestUnion(t *testing.T) {
	sets := map[uint][]Symbol{
		1: {"AAPL", "7203.T"},
		2: {"7203.T", "MSFT"},
	}
	got := Union(sets)
	if len(got) != 3 {
		t.Errorf("Union = %v, want 3 unique symbols", got)
	}
	seen := make(map[Symbol]int)
	for _, s := range got {
		seen[s]++
	}
	for s, n := range seen {
		if n != 1 {
			t.Errorf("symbol %s appears %d times in union", s, n)
		}
	}
}

func TestOverCapLoggedNotTruncated(t *testing.T) {
	users := []models.User{
		{ID: 1, Role: models.RoleUser, Symbols: "a\nb\nc\nd"},
	}
	sets := NewRegistry(2, 10).BuildEffectiveSets(users)
	if len(sets[1]) != 4 {
		t.Errorf("over-cap set was truncated to %d symbols, want 4", len(sets[1]))
	}
}
