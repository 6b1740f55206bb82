package monitor

import (
	"context"
	"testing"
	"time"

	"signalgate/internal/events"
)

func TestMonitorCountsDecisions(t *testing.T) {
	bus := events.NewBus()
	metrics := NewSystemMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	(&Monitor{Bus: bus, Metrics: metrics}).Start(ctx)
	time.Sleep(10 * time.Millisecond) // let the subscription attach

	bus.Publish(events.TopicDecision, events.Decision{Symbol: "CRU5", Status: "open"})
	bus.Publish(events.TopicDecision, events.Decision{Symbol: "CRU5", Status: "cooldown"})
	bus.Publish(events.TopicDecision, events.Decision{Symbol: "CRU5", Status: "order_failed"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.GetSnapshot().SignalsHandled == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap := metrics.GetSnapshot()
	if snap.SignalsHandled != 3 {
		t.Fatalf("SignalsHandled=%d, expected 3", snap.SignalsHandled)
	}
	if snap.OrdersSubmitted != 1 {
		t.Fatalf("OrdersSubmitted=%d, expected 1", snap.OrdersSubmitted)
	}
	if snap.ErrorsCount != 1 {
		t.Fatalf("ErrorsCount=%d, expected 1", snap.ErrorsCount)
	}
	if snap.ByStatus["cooldown"] != 1 {
		t.Fatalf("ByStatus=%v, expected cooldown 1", snap.ByStatus)
	}
}

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(10)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Record(v)
	}

	stats := h.Stats()
	if stats.Count != 5 || stats.Min != 1 || stats.Max != 5 {
		t.Fatalf("stats=%+v", stats)
	}
	if stats.Avg != 3 {
		t.Fatalf("Avg=%v, expected 3", stats.Avg)
	}

	// Window slides when full.
	for i := 0; i < 10; i++ {
		h.Record(100)
	}
	if got := h.Stats().Min; got != 100 {
		t.Fatalf("Min=%v, old samples should have slid out", got)
	}
}
