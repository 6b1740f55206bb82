package db

import "time"

// Decision is the audit record of one handled webhook signal, whatever
// its outcome was. No-ops (cooldown, limit, no_position) are recorded
// too so the full signal stream can be reconstructed.
type Decision struct {
	ID        string
	Symbol    string
	Ticker    string
	Category  string
	Status    string
	Side      string
	Qty       int64
	Price     float64
	Position  int64
	Detail    string
	OrderID   string
	CreatedAt time.Time
}

// ClosedTrade is one completed round trip: a position that was opened
// and later returned to flat (or flipped through flat).
type ClosedTrade struct {
	ID         string
	Symbol     string
	Direction  string // "long" or "short"
	Qty        int64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// BalanceReport is a portfolio snapshot taken on the report schedule.
type BalanceReport struct {
	ID          string
	Portfolio   string
	Evaluation  float64
	BuyingPower float64
	Profit      float64
	CreatedAt   time.Time
}

// PnLSummary aggregates closed trades over a window.
type PnLSummary struct {
	Trades int64
	Wins   int64
	Total  float64
}
