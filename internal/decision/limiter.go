package decision

import (
	"signalgate/internal/registry"
	"signalgate/pkg/alor"
)

// LimitQty caps a proposed order quantity so the resulting position stays
// within the instrument's absolute exposure cap. It must be fed a freshly
// read live position: trades placed outside the engine count against the
// cap too. Returns zero when no headroom remains.
func LimitQty(inst registry.Instrument, side alor.Side, requested, livePos int64) int64 {
	if requested <= 0 {
		return 0
	}

	// Room toward the cap in the direction of the order. Selling from a
	// long position passes through zero, so the room is maxQty plus the
	// current (positive) position, and symmetrically for buys from shorts.
	var room int64
	if side == alor.SideBuy {
		room = inst.MaxQty - livePos
	} else {
		room = inst.MaxQty + livePos
	}
	if room <= 0 {
		return 0
	}
	if requested < room {
		return requested
	}
	return room
}
