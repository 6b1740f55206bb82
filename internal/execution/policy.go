package execution

import "time"

// FailureKind classifies why an attempt is being retried.
type FailureKind int

const (
	// FailureTransient is an exchange-unavailable / clearing rejection.
	FailureTransient FailureKind = iota
	// FailureUnconfirmed is an accepted order whose effect is not yet
	// visible in the live position.
	FailureUnconfirmed
)

// RetryPolicy bounds the two retry layers of the execution engine.
// Delay is a pure function of attempt count and failure kind so the policy
// can be tested apart from the side effects it paces.
type RetryPolicy struct {
	SubmitAttempts  int           // total submissions per cycle (>=1)
	SubmitBackoff   time.Duration // wait between clearing retries
	ConfirmAttempts int           // total submit cycles (>=1)
	SettleWait      time.Duration // wait before re-reading the position
}

// DefaultPolicy matches the venue: clearing windows last minutes, fills
// settle into position records within seconds.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		SubmitAttempts:  5,
		SubmitBackoff:   2 * time.Minute,
		ConfirmAttempts: 2,
		SettleWait:      5 * time.Second,
	}
}

// Delay returns how long to wait before the given attempt (1-based counts
// the retry, not the initial try). Zero means retry immediately.
func (p RetryPolicy) Delay(kind FailureKind, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	switch kind {
	case FailureTransient:
		return p.SubmitBackoff
	case FailureUnconfirmed:
		return p.SettleWait
	default:
		return 0
	}
}

// Budget returns the worst-case time Submit can spend sleeping between
// attempts: every cycle exhausting its clearing retries plus the settle
// waits. Any request deadline wrapping Submit must exceed this.
func (p RetryPolicy) Budget() time.Duration {
	p = p.normalized()
	perCycle := time.Duration(p.SubmitAttempts-1)*p.SubmitBackoff + p.SettleWait
	betweenCycles := time.Duration(p.ConfirmAttempts-1) * p.SettleWait
	return time.Duration(p.ConfirmAttempts)*perCycle + betweenCycles
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.SubmitAttempts < 1 {
		p.SubmitAttempts = 1
	}
	if p.ConfirmAttempts < 1 {
		p.ConfirmAttempts = 1
	}
	return p
}
