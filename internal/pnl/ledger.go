// Package pnl tracks average entry prices per instrument and realizes
// profit when fills reduce or reverse a position.
package pnl

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"signalgate/internal/events"
	"signalgate/pkg/db"
)

// Lot is the open exposure for one instrument: signed quantity and the
// volume-weighted entry price.
type Lot struct {
	Symbol   string    `json:"symbol"`
	Qty      int64     `json:"qty"` // signed: >0 long, <0 short
	AvgPrice float64   `json:"avg_price"`
	OpenedAt time.Time `json:"opened_at"`
}

// Ledger consumes confirmed fills and maintains open lots. When a fill
// brings a lot back toward flat it realizes PnL, persists the round trip
// and announces it on the bus. Fills come from this gateway only; the
// exchange position is still the authority for trading decisions.
type Ledger struct {
	store *db.Database // optional
	bus   *events.Bus

	mu   sync.Mutex
	open map[string]*Lot
}

func NewLedger(store *db.Database, bus *events.Bus) *Ledger {
	return &Ledger{
		store: store,
		bus:   bus,
		open:  make(map[string]*Lot),
	}
}

// Run consumes fill events until the context is cancelled.
func (l *Ledger) Run(ctx context.Context) {
	ch, unsub := l.bus.Subscribe(events.TopicOrderFilled, 64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fill, ok := msg.(events.Fill)
			if !ok {
				continue
			}
			l.Apply(ctx, fill)
		}
	}
}

// Apply folds one confirmed fill into the ledger.
func (l *Ledger) Apply(ctx context.Context, fill events.Fill) {
	delta := fill.Qty
	if fill.Side == "sell" {
		delta = -delta
	}
	if delta == 0 {
		return
	}

	l.mu.Lock()
	closed := l.fold(fill.Symbol, delta, fill.Price, fill.Timestamp)
	l.mu.Unlock()

	for _, trade := range closed {
		l.record(ctx, trade)
	}
}

// fold mutates the lot under l.mu and returns any realized round trips.
func (l *Ledger) fold(symbol string, delta int64, price float64, ts time.Time) []db.ClosedTrade {
	lot := l.open[symbol]
	if lot == nil || lot.Qty == 0 {
		l.open[symbol] = &Lot{Symbol: symbol, Qty: delta, AvgPrice: price, OpenedAt: ts}
		return nil
	}

	// Same direction: average the entry.
	if sameSign(lot.Qty, delta) {
		total := lot.Qty + delta
		lot.AvgPrice = (lot.AvgPrice*float64(abs(lot.Qty)) + price*float64(abs(delta))) / float64(abs(total))
		lot.Qty = total
		return nil
	}

	// Opposite direction: close as much of the lot as the fill covers.
	closeQty := min64(abs(lot.Qty), abs(delta))
	direction := "long"
	sign := 1.0
	if lot.Qty < 0 {
		direction = "short"
		sign = -1.0
	}
	trade := db.ClosedTrade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Direction:  direction,
		Qty:        closeQty,
		EntryPrice: lot.AvgPrice,
		ExitPrice:  price,
		PnL:        (price - lot.AvgPrice) * float64(closeQty) * sign,
		OpenedAt:   lot.OpenedAt,
		ClosedAt:   ts,
	}

	remaining := lot.Qty + delta
	if remaining == 0 {
		delete(l.open, symbol)
	} else if sameSign(remaining, lot.Qty) {
		lot.Qty = remaining // partial close keeps the entry price
	} else {
		// Flip through flat: the excess opens a fresh lot at the fill price.
		l.open[symbol] = &Lot{Symbol: symbol, Qty: remaining, AvgPrice: price, OpenedAt: ts}
	}
	return []db.ClosedTrade{trade}
}

func (l *Ledger) record(ctx context.Context, trade db.ClosedTrade) {
	if l.store != nil {
		if err := l.store.InsertClosedTrade(ctx, trade); err != nil {
			log.Printf("pnl: persist closed trade %s: %v", trade.Symbol, err)
		}
	}

	pct := 0.0
	if trade.EntryPrice != 0 {
		pct = trade.PnL / (trade.EntryPrice * float64(trade.Qty)) * 100
	}
	signedQty := trade.Qty
	if trade.Direction == "short" {
		signedQty = -signedQty
	}
	log.Printf("pnl: %s closed %s %d: entry %.4f exit %.4f pnl %+.2f",
		trade.Symbol, trade.Direction, trade.Qty, trade.EntryPrice, trade.ExitPrice, trade.PnL)

	if l.bus != nil {
		l.bus.Publish(events.TopicTradeClosed, events.TradeClosed{
			Symbol:     trade.Symbol,
			ClosedQty:  signedQty,
			EntryPrice: trade.EntryPrice,
			ExitPrice:  trade.ExitPrice,
			PnL:        trade.PnL,
			PnLPercent: pct,
			Timestamp:  trade.ClosedAt,
		})
	}
}

// Open returns a snapshot of the open lots.
func (l *Ledger) Open() []Lot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Lot, 0, len(l.open))
	for _, lot := range l.open {
		out = append(out, *lot)
	}
	return out
}

func sameSign(a, b int64) bool {
	return (a > 0) == (b > 0)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
