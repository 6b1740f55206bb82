package decision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"signalgate/internal/cooldown"
	"signalgate/internal/events"
	"signalgate/internal/execution"
	"signalgate/internal/registry"
	"signalgate/internal/signal"
	"signalgate/internal/takeprofit"
	"signalgate/pkg/alor"
)

// Status is the outcome class of one handled signal.
type Status string

const (
	StatusOpen          Status = "open"
	StatusAverage       Status = "avg"
	StatusFlip          Status = "flip"
	StatusTakeProfit    Status = "tp"
	StatusTPRepeat      Status = "tp_repeat"
	StatusCooldown      Status = "cooldown"
	StatusLimit         Status = "limit"
	StatusNoPosition    Status = "no_position"
	StatusInvalidAction Status = "invalid_action"
	StatusOrderFailed   Status = "order_failed"
)

// ErrUnknownInstrument is returned when the alert ticker has no registry
// entry. Nothing is traded and no state changes.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Result reports what the engine did for one signal.
type Result struct {
	Status    Status
	Symbol    string
	Category  signal.Category
	Side      alor.Side
	FilledQty int64
	Price     float64
	Position  int64 // broker-reported position after the decision
	Detail    string
}

// Executor drives an order to confirmed completion.
type Executor interface {
	Submit(ctx context.Context, symbol string, side alor.Side, qty int64) (execution.Result, error)
}

// PositionOracle reads the broker's authoritative signed quantity. The
// engine never trusts its own memory of the position between decisions.
type PositionOracle interface {
	Position(ctx context.Context, symbol string) (int64, error)
}

// Config assembles an Engine.
type Config struct {
	Registry   *registry.Registry
	Oracle     PositionOracle
	Executor   Executor
	Cooldowns  *cooldown.Tracker
	TakeProfit *takeprofit.State
	Bus        *events.Bus      // optional
	Now        func() time.Time // optional, defaults to time.Now
}

// Engine converts classified signals into executed position changes.
// Decisions for one instrument are serialized: the decide-then-execute
// sequence must see a live position no concurrent decision can invalidate.
// Different instruments proceed independently.
type Engine struct {
	registry   *registry.Registry
	oracle     PositionOracle
	executor   Executor
	cooldowns  *cooldown.Tracker
	takeProfit *takeprofit.State
	bus        *events.Bus
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a decision engine.
func NewEngine(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		registry:   cfg.Registry,
		oracle:     cfg.Oracle,
		executor:   cfg.Executor,
		cooldowns:  cfg.Cooldowns,
		takeProfit: cfg.TakeProfit,
		bus:        cfg.Bus,
		now:        now,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.locks[symbol] = l
	}
	return l
}

// HandleSignal processes one external alert to completion: classify,
// cooldown gate, live position read, decide, cap, execute, confirm.
func (e *Engine) HandleSignal(ctx context.Context, ticker, rawAction string) (Result, error) {
	inst, ok := e.registry.Resolve(ticker)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, ticker)
	}

	cat := signal.Classify(rawAction)
	if cat == signal.CategoryInvalid {
		log.Printf("decision: %s: unrecognized action %q rejected", inst.Symbol, rawAction)
		res := Result{Status: StatusInvalidAction, Symbol: inst.Symbol, Category: cat,
			Detail: fmt.Sprintf("unrecognized action %q", rawAction)}
		e.publish(ticker, res)
		return res, nil
	}

	// Serialize the whole decide-then-execute sequence per instrument.
	lock := e.lockFor(inst.Symbol)
	lock.Lock()
	defer lock.Unlock()

	res, err := e.decide(ctx, inst, cat)
	res.Symbol = inst.Symbol
	res.Category = cat
	e.publish(ticker, res)
	return res, err
}

func (e *Engine) decide(ctx context.Context, inst registry.Instrument, cat signal.Category) (Result, error) {
	now := e.now()
	pos, err := e.oracle.Position(ctx, inst.Symbol)
	if err != nil {
		return Result{Status: StatusOrderFailed, Detail: "position read failed"},
			fmt.Errorf("read live position for %s: %w", inst.Symbol, err)
	}

	want := cat.Direction()
	group := cat.CooldownKey()

	var (
		status Status
		qty    int64
	)

	switch {
	case cat.IsTakeProfit():
		switch {
		case pos == 0:
			log.Printf("decision: %s: take-profit with flat position, nothing to unwind", inst.Symbol)
			return Result{Status: StatusNoPosition, Position: pos}, nil
		case pos*want < 0:
			// First take-profit hit: reverse the position. The cooldown is
			// deliberately not stamped here so an immediate repeat can still
			// add its averaging increment.
			status = StatusTakeProfit
			qty = abs(pos) + inst.OpenQty
		default:
			// Position already on the target side. Only a prior take-profit
			// flip in this direction makes it a repeat; otherwise there is
			// no position on the named side to unwind.
			if e.takeProfit.Last(inst.Symbol) != takeprofit.Direction(want) {
				log.Printf("decision: %s: %s without matching take-profit history ignored", inst.Symbol, cat)
				return Result{Status: StatusNoPosition, Position: pos,
					Detail: "no position on the signal's side and no take-profit history"}, nil
			}
			if e.cooldowns.ShouldSuppress(inst.Symbol, group, now) {
				log.Printf("decision: %s: take-profit repeat suppressed by cooldown", inst.Symbol)
				return Result{Status: StatusCooldown, Position: pos}, nil
			}
			status = StatusTPRepeat
			qty = inst.AddQty
		}

	case pos == 0:
		status = StatusOpen
		qty = inst.OpenQty
		e.cooldowns.Touch(inst.Symbol, group, now)

	case pos*want < 0:
		// Opposite side: close the existing position and open anew in one
		// order. Never suppressed; a reversal outranks a signal storm.
		status = StatusFlip
		qty = abs(pos) + inst.OpenQty
		e.cooldowns.Touch(inst.Symbol, group, now)

	default:
		// Same side: averaging, gated by the category's cooldown.
		if e.cooldowns.ShouldSuppress(inst.Symbol, group, now) {
			log.Printf("decision: %s: %s suppressed by cooldown", inst.Symbol, cat)
			return Result{Status: StatusCooldown, Position: pos}, nil
		}
		status = StatusAverage
		qty = inst.AddQty
	}

	side := alor.SideBuy
	if want < 0 {
		side = alor.SideSell
	}

	allowed := LimitQty(inst, side, qty, pos)
	if allowed == 0 {
		// At the cap already. Distinct from a cooldown no-op so operators
		// can tell "throttled" apart from "fully loaded".
		log.Printf("decision: %s: %s capped to zero by exposure limit (pos %+d, max %d)",
			inst.Symbol, status, pos, inst.MaxQty)
		return Result{Status: StatusLimit, Side: side, Position: pos,
			Detail: fmt.Sprintf("exposure cap %d reached", inst.MaxQty)}, nil
	}
	if allowed < qty {
		log.Printf("decision: %s: %s reduced %d -> %d by exposure limit", inst.Symbol, status, qty, allowed)
	}

	exec, err := e.executor.Submit(ctx, inst.Symbol, side, allowed)
	if err != nil {
		log.Printf("decision: %s: %s %d failed: %v", inst.Symbol, side, allowed, err)
		return Result{Status: StatusOrderFailed, Side: side, Position: pos,
			Detail: err.Error()}, fmt.Errorf("execute %s %s %d: %w", inst.Symbol, side, allowed, err)
	}

	// Maintain take-profit memory off the confirmed outcome only.
	switch status {
	case StatusTakeProfit:
		e.takeProfit.Record(inst.Symbol, takeprofit.Direction(want))
	case StatusFlip:
		e.takeProfit.Clear(inst.Symbol)
	}

	log.Printf("decision: %s: %s %s %d @ %.2f, position %+d",
		inst.Symbol, status, side, allowed, exec.Price, exec.Position)

	return Result{
		Status:    status,
		Side:      side,
		FilledQty: allowed,
		Price:     exec.Price,
		Position:  exec.Position,
	}, nil
}

func (e *Engine) publish(ticker string, res Result) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.TopicDecision, events.Decision{
		Symbol:    res.Symbol,
		Ticker:    ticker,
		Category:  string(res.Category),
		Status:    string(res.Status),
		Side:      string(res.Side),
		Qty:       res.FilledQty,
		Price:     res.Price,
		Position:  res.Position,
		Detail:    res.Detail,
		Timestamp: e.now().UTC(),
	})
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
