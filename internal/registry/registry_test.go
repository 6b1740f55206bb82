package registry

import (
	"testing"
	"time"
)

const sampleConfig = `
cooldowns:
  directional: 45m
  rsi: 20m
instruments:
  - symbol: CRU5
    aliases: ["MOEX:CRU2025"]
    open_qty: 5
    add_qty: 2
    max_qty: 9
    cooldowns:
      rsi_oversold_weak: 10m
  - symbol: NGN5
    aliases: ["MOEX:NGN2025"]
    open_qty: 3
    add_qty: 1
    max_qty: 5
`

func TestParseAndResolve(t *testing.T) {
	r, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	inst, ok := r.Resolve("MOEX:CRU2025")
	if !ok {
		t.Fatal("alias MOEX:CRU2025 did not resolve")
	}
	if inst.Symbol != "CRU5" || inst.OpenQty != 5 || inst.AddQty != 2 || inst.MaxQty != 9 {
		t.Fatalf("unexpected instrument: %+v", inst)
	}

	// Trade symbols resolve to themselves.
	if inst, ok := r.Resolve("NGN5"); !ok || inst.Symbol != "NGN5" {
		t.Fatalf("symbol NGN5 did not resolve to itself: %+v ok=%v", inst, ok)
	}

	if _, ok := r.Resolve("MOEX:SIH2025"); ok {
		t.Fatal("unknown ticker resolved")
	}
}

func TestParseRejectsBadQuantities(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero open", "instruments:\n  - symbol: X\n    open_qty: 0\n    add_qty: 1\n    max_qty: 2\n"},
		{"open above max", "instruments:\n  - symbol: X\n    open_qty: 5\n    add_qty: 1\n    max_qty: 2\n"},
		{"add above max", "instruments:\n  - symbol: X\n    open_qty: 1\n    add_qty: 5\n    max_qty: 2\n"},
		{"empty file", "instruments: []\n"},
		{"duplicate symbol", "instruments:\n  - symbol: X\n    open_qty: 1\n    add_qty: 1\n    max_qty: 2\n  - symbol: X\n    open_qty: 1\n    add_qty: 1\n    max_qty: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestWindowPrecedence(t *testing.T) {
	r, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	tests := []struct {
		symbol, group string
		want          time.Duration
	}{
		{"CRU5", "directional", 45 * time.Minute},        // configured group
		{"CRU5", "rsi_oversold_weak", 10 * time.Minute},  // instrument override
		{"NGN5", "rsi_oversold_weak", 20 * time.Minute},  // rsi fallback
		{"CRU5", "rsi_overbought_weak", 20 * time.Minute}, // rsi fallback
		{"CRU5", "take_profit", 30 * time.Minute},        // built-in default
	}

	for _, tt := range tests {
		if got := r.Window(tt.symbol, tt.group); got != tt.want {
			t.Errorf("Window(%s,%s)=%v, expected %v", tt.symbol, tt.group, got, tt.want)
		}
	}
}
