// Package notify renders gateway events as chat messages. Delivery is
// fire-and-forget: a failed or slow notification never touches the
// trading path.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"signalgate/internal/events"
)

// Sink is a pluggable message transport.
type Sink interface {
	Send(ctx context.Context, text string) error
	Enabled() bool
}

// Notifier subscribes to bus topics and forwards rendered messages.
type Notifier struct {
	bus  *events.Bus
	sink Sink
}

func NewNotifier(bus *events.Bus, sink Sink) *Notifier {
	return &Notifier{bus: bus, sink: sink}
}

// Start launches the forwarding goroutines. They exit when the context
// is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	if n.bus == nil || n.sink == nil || !n.sink.Enabled() {
		log.Println("notify: sink not configured, notifications disabled")
		return
	}
	n.forward(ctx, events.TopicDecision, renderDecision)
	n.forward(ctx, events.TopicTradeClosed, renderTradeClosed)
	n.forward(ctx, events.TopicBalance, renderBalance)
	n.forward(ctx, events.TopicSystem, renderSystem)
}

func (n *Notifier) forward(ctx context.Context, topic events.Topic, render func(any) string) {
	stream, unsub := n.bus.Subscribe(topic, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				text := render(msg)
				if text == "" {
					continue
				}
				if err := n.sink.Send(ctx, text); err != nil {
					log.Printf("notify: send failed: %v", err)
				}
			}
		}
	}()
}

func renderDecision(msg any) string {
	d, ok := msg.(events.Decision)
	if !ok {
		return ""
	}
	switch d.Status {
	case "open", "avg", "flip", "tp", "tp_repeat":
		return fmt.Sprintf("%s <b>%s</b> %s: %s %d @ %.2f, position %+d",
			statusEmoji(d.Status), d.Symbol, d.Status, strings.ToUpper(d.Side), d.Qty, d.Price, d.Position)
	case "order_failed":
		return fmt.Sprintf("❌ <b>%s</b> order failed: %s", d.Symbol, d.Detail)
	default:
		// Quiet no-ops (cooldown, limit, no_position, invalid_action) stay
		// in the logs and the audit table only.
		return ""
	}
}

func renderTradeClosed(msg any) string {
	tc, ok := msg.(events.TradeClosed)
	if !ok {
		return ""
	}
	emoji := "🟢"
	if tc.PnL < 0 {
		emoji = "🔴"
	}
	return fmt.Sprintf("%s <b>%s</b> closed %+d: %+.2f (%+.2f%%)",
		emoji, tc.Symbol, tc.ClosedQty, tc.PnL, tc.PnLPercent)
}

func renderBalance(msg any) string {
	b, ok := msg.(events.BalanceReport)
	if !ok {
		return ""
	}
	return fmt.Sprintf("💼 Portfolio %s: %.2f", b.Portfolio, b.Balance)
}

func renderSystem(msg any) string {
	s, ok := msg.(events.SystemNotice)
	if !ok {
		return ""
	}
	if s.InstanceID != "" {
		return fmt.Sprintf("ℹ️ %s (instance %s)", s.Message, s.InstanceID)
	}
	return "ℹ️ " + s.Message
}

func statusEmoji(status string) string {
	switch status {
	case "open":
		return "🚀"
	case "avg":
		return "➕"
	case "flip":
		return "🔄"
	case "tp", "tp_repeat":
		return "💰"
	default:
		return "•"
	}
}
