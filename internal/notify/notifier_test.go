package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"signalgate/internal/events"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordingSink) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, text)
	return nil
}

func (s *recordingSink) Enabled() bool { return true }

func (s *recordingSink) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.msgs) >= n {
			out := make([]string, len(s.msgs))
			copy(out, s.msgs)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func TestNotifierForwardsTrades(t *testing.T) {
	bus := events.NewBus()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewNotifier(bus, sink).Start(ctx)
	time.Sleep(10 * time.Millisecond) // let subscriptions attach

	bus.Publish(events.TopicDecision, events.Decision{
		Symbol: "CRU5", Status: "open", Side: "buy", Qty: 4, Price: 101.5, Position: 4,
	})
	bus.Publish(events.TopicTradeClosed, events.TradeClosed{
		Symbol: "CRU5", ClosedQty: 4, PnL: 12, PnLPercent: 3,
	})

	msgs := sink.wait(t, 2)
	var sawOpen, sawClose bool
	for _, m := range msgs {
		if strings.Contains(m, "open") && strings.Contains(m, "BUY 4") {
			sawOpen = true
		}
		if strings.Contains(m, "closed +4") {
			sawClose = true
		}
	}
	if !sawOpen || !sawClose {
		t.Fatalf("missing expected messages: %v", msgs)
	}
}

func TestNotifierSkipsQuietStatuses(t *testing.T) {
	bus := events.NewBus()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewNotifier(bus, sink).Start(ctx)
	time.Sleep(10 * time.Millisecond)

	bus.Publish(events.TopicDecision, events.Decision{Symbol: "CRU5", Status: "cooldown"})
	bus.Publish(events.TopicDecision, events.Decision{Symbol: "CRU5", Status: "limit"})
	bus.Publish(events.TopicDecision, events.Decision{
		Symbol: "CRU5", Status: "flip", Side: "sell", Qty: 12, Price: 99, Position: -4,
	})

	msgs := sink.wait(t, 1)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "flip") {
		t.Fatalf("expected only the flip message, got %v", msgs)
	}
}

func TestDecisionRendering(t *testing.T) {
	tests := []struct {
		name     string
		decision events.Decision
		contains string
		empty    bool
	}{
		{"open", events.Decision{Symbol: "CRU5", Status: "open", Side: "buy", Qty: 4, Price: 100, Position: 4}, "BUY 4", false},
		{"order failed", events.Decision{Symbol: "CRU5", Status: "order_failed", Detail: "rejected"}, "rejected", false},
		{"cooldown is quiet", events.Decision{Symbol: "CRU5", Status: "cooldown"}, "", true},
		{"no_position is quiet", events.Decision{Symbol: "CRU5", Status: "no_position"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderDecision(tt.decision)
			if tt.empty {
				if got != "" {
					t.Fatalf("expected empty rendering, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Fatalf("rendering %q missing %q", got, tt.contains)
			}
		})
	}
}
