package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signalgate/internal/events"
	"signalgate/pkg/alor"
)

// ErrUnconfirmed is returned when every submit cycle completed without the
// live position reflecting the requested quantity.
var ErrUnconfirmed = errors.New("order effect not confirmed in live position")

// Broker is the venue surface the engine consumes: the live position oracle
// and market order submission.
type Broker interface {
	Position(ctx context.Context, symbol string) (int64, error)
	PlaceMarketOrder(ctx context.Context, symbol string, side alor.Side, qty int64) (alor.OrderAck, error)
	OrderStatus(ctx context.Context, orderID string) (alor.OrderState, error)
}

// Result is a confirmed execution: the broker-reported position after the
// fill and the fill price.
type Result struct {
	Position int64
	Price    float64
	OrderID  string
}

// Engine drives a market order to confirmed completion. Submission retries
// cover clearing windows (the venue rejecting orders); confirmation retries
// cover accepted orders whose effect is not yet visible. The two bounds are
// independent because they are different failure modes.
type Engine struct {
	broker Broker
	policy RetryPolicy
	bus    *events.Bus

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an execution engine. bus may be nil.
func NewEngine(broker Broker, policy RetryPolicy, bus *events.Bus) *Engine {
	return &Engine{
		broker: broker,
		policy: policy.normalized(),
		bus:    bus,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Submit places a market order and confirms the position moved by qty on
// side before reporting success. On terminal failure no state is assumed:
// the next decision cycle re-reads the live position.
func (e *Engine) Submit(ctx context.Context, symbol string, side alor.Side, qty int64) (Result, error) {
	if qty <= 0 {
		return Result{}, fmt.Errorf("execution: quantity must be positive, got %d", qty)
	}

	var lastErr error
	for cycle := 0; cycle < e.policy.ConfirmAttempts; cycle++ {
		if cycle > 0 {
			log.Printf("execution: %s %s %d not confirmed, resubmitting (cycle %d/%d)",
				symbol, side, qty, cycle+1, e.policy.ConfirmAttempts)
			if err := e.sleep(ctx, e.policy.Delay(FailureUnconfirmed, cycle)); err != nil {
				return Result{}, err
			}
		}

		before, err := e.broker.Position(ctx, symbol)
		if err != nil {
			return Result{}, fmt.Errorf("read position before submit: %w", err)
		}

		ack, err := e.submitWithRetry(ctx, symbol, side, qty)
		if err != nil {
			return Result{}, err
		}

		if err := e.sleep(ctx, e.policy.SettleWait); err != nil {
			return Result{}, err
		}

		after, err := e.broker.Position(ctx, symbol)
		if err != nil {
			return Result{}, fmt.Errorf("read position after submit: %w", err)
		}

		want := before + side.Sign()*qty
		if after == want {
			price := ack.Price
			if price == 0 && ack.OrderID != "" {
				// The order outlived the status-poll budget; the fill
				// price only exists on the order record now.
				if st, serr := e.broker.OrderStatus(ctx, ack.OrderID); serr == nil && st.Price > 0 {
					price = st.Price
				} else if serr != nil {
					log.Printf("execution: %s fill price lookup for order %s failed: %v",
						symbol, ack.OrderID, serr)
				}
			}
			res := Result{Position: after, Price: price, OrderID: ack.OrderID}
			log.Printf("execution: confirmed %s %s %d @ %.2f, position %+d",
				symbol, side, qty, price, after)
			if e.bus != nil {
				e.bus.Publish(events.TopicOrderFilled, events.Fill{
					Symbol:    symbol,
					Side:      string(side),
					Qty:       qty,
					Price:     price,
					OrderID:   ack.OrderID,
					Position:  after,
					Timestamp: time.Now().UTC(),
				})
			}
			return res, nil
		}

		lastErr = fmt.Errorf("%w: wanted %+d, broker reports %+d", ErrUnconfirmed, want, after)
		log.Printf("execution: %s order %s unconfirmed: %v", symbol, ack.OrderID, lastErr)
	}

	return Result{}, lastErr
}

// submitWithRetry sends the order, retrying only transient clearing
// rejections up to the configured bound. Any other error is terminal and
// returned without retry.
func (e *Engine) submitWithRetry(ctx context.Context, symbol string, side alor.Side, qty int64) (alor.OrderAck, error) {
	var lastErr error
	for attempt := 0; attempt < e.policy.SubmitAttempts; attempt++ {
		if attempt > 0 {
			log.Printf("execution: %s clearing window, retry %d/%d in %v",
				symbol, attempt, e.policy.SubmitAttempts-1, e.policy.Delay(FailureTransient, attempt))
			if err := e.sleep(ctx, e.policy.Delay(FailureTransient, attempt)); err != nil {
				return alor.OrderAck{}, err
			}
		}

		ack, err := e.broker.PlaceMarketOrder(ctx, symbol, side, qty)
		if err == nil {
			return ack, nil
		}
		if !alor.IsTransient(err) {
			return alor.OrderAck{}, err
		}
		lastErr = err
	}
	return alor.OrderAck{}, fmt.Errorf("submit retries exhausted: %w", lastErr)
}
