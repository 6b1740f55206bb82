package api

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"signalgate/internal/decision"
	"signalgate/internal/monitor"
	"signalgate/pkg/db"
)

// Calendar gates trading on the exchange's wall clock. MOEX futures do
// not trade on weekends, so alerts arriving then are acknowledged but
// not acted on.
type Calendar struct {
	BlockWeekends bool
	Location      *time.Location
	Now           func() time.Time // optional, defaults to time.Now
}

// TradingOpen reports whether signals should currently be executed.
func (cal Calendar) TradingOpen() bool {
	if !cal.BlockWeekends {
		return true
	}
	now := time.Now
	if cal.Now != nil {
		now = cal.Now
	}
	loc := cal.Location
	if loc == nil {
		loc = time.Local
	}
	switch now().In(loc).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

type webhookPayload struct {
	Secret string `json:"secret"`
	Ticker string `json:"ticker" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// webhook receives one TradingView alert. The secret must match both in
// the URL and in the body: alert URLs leak into logs too easily for a
// single check.
func (s *Server) webhook(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(s.WebhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_TOKEN", "error": "unknown webhook token"})
		return
	}

	var payload webhookPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "invalid alert payload"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(payload.Secret), []byte(s.WebhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_SECRET", "error": "alert secret mismatch"})
		return
	}

	if !s.Calendar.TradingOpen() {
		log.Printf("webhook: %s %s ignored, market closed", payload.Ticker, payload.Action)
		c.JSON(http.StatusOK, gin.H{"status": "market_closed"})
		return
	}

	var timer *monitor.Timer
	if s.Metrics != nil {
		timer = monitor.NewTimer(s.Metrics.SignalLatency)
	}

	res, err := s.Engine.HandleSignal(c.Request.Context(), payload.Ticker, payload.Action)
	if timer != nil {
		timer.Stop()
	}

	if err != nil {
		if errors.Is(err, decision.ErrUnknownInstrument) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_INSTRUMENT", "error": err.Error()})
			return
		}
		// Execution failures are reported in the body with a 200 so
		// TradingView does not re-fire the alert at a broken order.
		log.Printf("webhook: %s %s failed: %v", payload.Ticker, payload.Action, err)
	}

	s.audit(c, payload.Ticker, res)

	c.JSON(http.StatusOK, gin.H{
		"status":   string(res.Status),
		"symbol":   res.Symbol,
		"category": string(res.Category),
		"side":     string(res.Side),
		"qty":      res.FilledQty,
		"price":    res.Price,
		"position": res.Position,
		"detail":   res.Detail,
	})
}

// audit persists the decision row; failures only log.
func (s *Server) audit(c *gin.Context, ticker string, res decision.Result) {
	if s.DB == nil {
		return
	}
	err := s.DB.InsertDecision(c.Request.Context(), db.Decision{
		ID:        uuid.NewString(),
		Symbol:    res.Symbol,
		Ticker:    ticker,
		Category:  string(res.Category),
		Status:    string(res.Status),
		Side:      string(res.Side),
		Qty:       res.FilledQty,
		Price:     res.Price,
		Position:  res.Position,
		Detail:    res.Detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("webhook: audit insert failed: %v", err)
	}
}
