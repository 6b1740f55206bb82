package events

import "sync"

// Bus is a small channel-based pub/sub broker. Publishing never blocks:
// slow subscribers lose messages rather than stalling the trading path.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan any
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan any)}
}

// Subscribe registers a buffered listener and returns it with an
// unsubscribe function.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs[t] {
			if c == ch {
				close(c)
				b.subs[t] = append(b.subs[t][:i], b.subs[t][i+1:]...)
				break
			}
		}
	}
	return ch, unsub
}

// Publish fans the payload out to current subscribers, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[t] {
		select {
		case ch <- payload:
		default:
		}
	}
}
