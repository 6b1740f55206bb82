package pnl

import (
	"context"
	"math"
	"testing"
	"time"

	"signalgate/internal/events"
)

func fill(symbol, side string, qty int64, price float64) events.Fill {
	return events.Fill{
		Symbol:    symbol,
		Side:      side,
		Qty:       qty,
		Price:     price,
		Timestamp: time.Date(2025, 7, 21, 10, 0, 0, 0, time.UTC),
	}
}

func openLot(t *testing.T, l *Ledger, symbol string) Lot {
	t.Helper()
	for _, lot := range l.Open() {
		if lot.Symbol == symbol {
			return lot
		}
	}
	t.Fatalf("no open lot for %s", symbol)
	return Lot{}
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLedgerAveragesEntries(t *testing.T) {
	l := NewLedger(nil, nil)
	ctx := context.Background()

	l.Apply(ctx, fill("CRU5", "buy", 4, 100))
	l.Apply(ctx, fill("CRU5", "buy", 2, 106))

	lot := openLot(t, l, "CRU5")
	if lot.Qty != 6 {
		t.Fatalf("Qty=%d, expected 6", lot.Qty)
	}
	if !almost(lot.AvgPrice, 102) {
		t.Fatalf("AvgPrice=%v, expected 102", lot.AvgPrice)
	}
}

func TestLedgerRealizesOnClose(t *testing.T) {
	bus := events.NewBus()
	closed, unsub := bus.Subscribe(events.TopicTradeClosed, 4)
	defer unsub()

	l := NewLedger(nil, bus)
	ctx := context.Background()

	l.Apply(ctx, fill("CRU5", "buy", 4, 100))
	l.Apply(ctx, fill("CRU5", "sell", 4, 103))

	if len(l.Open()) != 0 {
		t.Fatal("lot should be flat after full close")
	}

	select {
	case msg := <-closed:
		tc := msg.(events.TradeClosed)
		if tc.ClosedQty != 4 || !almost(tc.PnL, 12) {
			t.Fatalf("closed qty=%d pnl=%v, expected 4/12", tc.ClosedQty, tc.PnL)
		}
		if !almost(tc.PnLPercent, 3) {
			t.Fatalf("pnl%%=%v, expected 3", tc.PnLPercent)
		}
	default:
		t.Fatal("no trade.closed event published")
	}
}

func TestLedgerShortRoundTrip(t *testing.T) {
	bus := events.NewBus()
	closed, unsub := bus.Subscribe(events.TopicTradeClosed, 4)
	defer unsub()

	l := NewLedger(nil, bus)
	ctx := context.Background()

	l.Apply(ctx, fill("NGN5", "sell", 8, 3.2))
	l.Apply(ctx, fill("NGN5", "buy", 8, 3.0))

	select {
	case msg := <-closed:
		tc := msg.(events.TradeClosed)
		// Short: entry above exit is a gain.
		if !almost(tc.PnL, 1.6) {
			t.Fatalf("pnl=%v, expected 1.6", tc.PnL)
		}
		if tc.ClosedQty != -8 {
			t.Fatalf("closed qty=%d, expected -8 (short)", tc.ClosedQty)
		}
	default:
		t.Fatal("no trade.closed event published")
	}
}

func TestLedgerPartialCloseKeepsEntry(t *testing.T) {
	l := NewLedger(nil, nil)
	ctx := context.Background()

	l.Apply(ctx, fill("CRU5", "buy", 6, 100))
	l.Apply(ctx, fill("CRU5", "sell", 2, 110))

	lot := openLot(t, l, "CRU5")
	if lot.Qty != 4 {
		t.Fatalf("Qty=%d, expected 4", lot.Qty)
	}
	if !almost(lot.AvgPrice, 100) {
		t.Fatalf("AvgPrice=%v, partial close must keep entry price", lot.AvgPrice)
	}
}

func TestLedgerFlipThroughFlat(t *testing.T) {
	bus := events.NewBus()
	closed, unsub := bus.Subscribe(events.TopicTradeClosed, 4)
	defer unsub()

	l := NewLedger(nil, bus)
	ctx := context.Background()

	// Long 8 at 100, then a reversal order: sell 12 at 104.
	l.Apply(ctx, fill("CRU5", "buy", 8, 100))
	l.Apply(ctx, fill("CRU5", "sell", 12, 104))

	lot := openLot(t, l, "CRU5")
	if lot.Qty != -4 {
		t.Fatalf("Qty=%d, expected -4 after flip", lot.Qty)
	}
	if !almost(lot.AvgPrice, 104) {
		t.Fatalf("AvgPrice=%v, flip remainder must open at fill price", lot.AvgPrice)
	}

	select {
	case msg := <-closed:
		tc := msg.(events.TradeClosed)
		if tc.ClosedQty != 8 || !almost(tc.PnL, 32) {
			t.Fatalf("closed qty=%d pnl=%v, expected 8/32", tc.ClosedQty, tc.PnL)
		}
	default:
		t.Fatal("the closed leg of the flip must publish an event")
	}
}

func TestLedgerIndependentSymbols(t *testing.T) {
	l := NewLedger(nil, nil)
	ctx := context.Background()

	l.Apply(ctx, fill("CRU5", "buy", 4, 100))
	l.Apply(ctx, fill("NGN5", "sell", 8, 3.2))

	if len(l.Open()) != 2 {
		t.Fatalf("expected 2 open lots, got %d", len(l.Open()))
	}
}
