package alor

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a broker API failure. Transient errors (exchange unavailable,
// clearing in progress) may be retried; everything else is terminal.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Transient  bool
}

func (e *Error) Error() string {
	kind := "terminal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("alor: %s: %s (%s, http %d)", e.Op, e.Message, kind, e.StatusCode)
}

// IsTransient reports whether err is a retryable broker error.
func IsTransient(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Transient
}

// clearingMarkers are substrings the venue uses while the exchange is in a
// clearing window and rejecting new orders.
var clearingMarkers = []string{
	"clearing",
	"клиринг",
	"недоступна",
	"session is closed",
}

func newAPIError(op string, status int, body string) *Error {
	transient := status == 502 || status == 503 || status == 504
	if !transient {
		lower := strings.ToLower(body)
		for _, m := range clearingMarkers {
			if strings.Contains(lower, m) {
				transient = true
				break
			}
		}
	}
	msg := strings.TrimSpace(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &Error{Op: op, StatusCode: status, Message: msg, Transient: transient}
}
