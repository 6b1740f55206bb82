package takeprofit

import "sync"

// Direction of the most recent take-profit action for an instrument.
type Direction int

const (
	None  Direction = 0
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "none"
	}
}

// State remembers, per instrument, the direction of the last take-profit
// flip. It is what distinguishes a first take-profit hit (reverse) from a
// repeat hit in the same direction (average only).
type State struct {
	mu   sync.Mutex
	last map[string]Direction
}

func NewState() *State {
	return &State{last: make(map[string]Direction)}
}

// Record stores the direction of an executed take-profit flip.
func (s *State) Record(symbol string, d Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[symbol] = d
}

// Last returns the recorded direction, or None.
func (s *State) Last(symbol string) Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[symbol]
}

// Clear erases the memory for an instrument. A successful directional flip
// calls this: a fresh position invalidates prior take-profit history.
func (s *State) Clear(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, symbol)
}
