package events

import "time"

// Topic enumerates the event streams inside the gateway.
type Topic string

const (
	TopicDecision    Topic = "decision"     // one event per handled signal
	TopicOrderFilled Topic = "order.filled" // confirmed fills
	TopicTradeClosed Topic = "trade.closed" // position returned to flat
	TopicBalance     Topic = "balance"      // scheduled balance reports
	TopicSystem      Topic = "system"       // startup/shutdown notices
)

// Decision describes the outcome of one handled signal. The notification
// sink renders these; failures to deliver never reach the trading path.
type Decision struct {
	Symbol    string    `json:"symbol"`
	Ticker    string    `json:"ticker"` // alert ticker as received
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Side      string    `json:"side,omitempty"`
	Qty       int64     `json:"qty,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Position  int64     `json:"position"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Fill describes a confirmed order execution.
type Fill struct {
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Qty       int64     `json:"qty"`
	Price     float64   `json:"price"`
	OrderID   string    `json:"order_id"`
	Position  int64     `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeClosed describes a round trip that brought an instrument back to
// flat, with realized result.
type TradeClosed struct {
	Symbol     string    `json:"symbol"`
	ClosedQty  int64     `json:"closed_qty"` // signed, as held before close
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Timestamp  time.Time `json:"timestamp"`
}

// BalanceReport carries a portfolio snapshot for scheduled notifications.
type BalanceReport struct {
	Portfolio string    `json:"portfolio"`
	Balance   float64   `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemNotice is a free-form operational message (startup, shutdown).
type SystemNotice struct {
	InstanceID string    `json:"instance_id,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
