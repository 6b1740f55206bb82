package monitor

import (
	"context"
	"log"

	"signalgate/internal/events"
)

// Monitor feeds decision events into the metrics counters.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Metrics == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(events.TopicDecision, 50)
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
				d, ok := msg.(events.Decision)
				if !ok {
					continue
				}
				m.Metrics.IncrementSignals()
				m.Metrics.CountStatus(d.Status)
				switch d.Status {
				case "open", "avg", "flip", "tp", "tp_repeat":
					m.Metrics.IncrementOrders()
				case "order_failed":
					m.Metrics.IncrementErrors()
				}
			}
		}
	}()
}
