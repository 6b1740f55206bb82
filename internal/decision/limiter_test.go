package decision

import (
	"testing"

	"signalgate/internal/registry"
	"signalgate/pkg/alor"
)

func TestLimitQty(t *testing.T) {
	inst := registry.Instrument{Symbol: "CRU5", OpenQty: 4, AddQty: 2, MaxQty: 8}

	tests := []struct {
		name      string
		side      alor.Side
		requested int64
		livePos   int64
		want      int64
	}{
		{"open from flat", alor.SideBuy, 4, 0, 4},
		{"average with headroom", alor.SideBuy, 2, 4, 2},
		{"average exactly to cap", alor.SideBuy, 2, 6, 2},
		{"average at cap", alor.SideBuy, 2, 8, 0},
		{"average clipped", alor.SideBuy, 4, 7, 1},
		{"flip through zero", alor.SideSell, 12, 8, 12},
		{"flip from short", alor.SideBuy, 8, -4, 8},
		{"short at cap", alor.SideSell, 2, -8, 0},
		{"oversized flip clipped at far cap", alor.SideSell, 20, 8, 16},
		{"zero request", alor.SideBuy, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LimitQty(inst, tt.side, tt.requested, tt.livePos)
			if got != tt.want {
				t.Fatalf("LimitQty(%s, %d, pos %d)=%d, expected %d",
					tt.side, tt.requested, tt.livePos, got, tt.want)
			}

			// The cap invariant itself.
			result := tt.livePos + tt.side.Sign()*got
			if result > inst.MaxQty || result < -inst.MaxQty {
				t.Fatalf("resulting position %d breaches cap %d", result, inst.MaxQty)
			}
		})
	}
}
