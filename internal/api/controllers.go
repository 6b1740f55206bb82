package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Symbol string `form:"symbol"`
	Limit  int    `form:"limit"`
}

func (q *listQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// getInstruments lists the configured instruments and their limits.
func (s *Server) getInstruments(c *gin.Context) {
	if s.Registry == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "registry not configured")
		return
	}
	type row struct {
		Symbol  string   `json:"symbol"`
		Aliases []string `json:"aliases,omitempty"`
		OpenQty int64    `json:"open_qty"`
		AddQty  int64    `json:"add_qty"`
		MaxQty  int64    `json:"max_qty"`
	}
	var out []row
	for _, sym := range s.Registry.Symbols() {
		inst, _ := s.Registry.Get(sym)
		out = append(out, row{
			Symbol:  inst.Symbol,
			Aliases: inst.Aliases,
			OpenQty: inst.OpenQty,
			AddQty:  inst.AddQty,
			MaxQty:  inst.MaxQty,
		})
	}
	c.JSON(http.StatusOK, out)
}

// getPositions returns the ledger's open lots.
func (s *Server) getPositions(c *gin.Context) {
	if s.Ledger == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "ledger not configured")
		return
	}
	c.JSON(http.StatusOK, s.Ledger.Open())
}

// getCooldowns returns the last-trigger timestamps per instrument/group.
func (s *Server) getCooldowns(c *gin.Context) {
	if s.Cooldowns == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "cooldowns not configured")
		return
	}
	c.JSON(http.StatusOK, s.Cooldowns.Snapshot())
}

// getDecisions returns the recent audit trail.
func (s *Server) getDecisions(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "database not configured")
		return
	}
	var q listQuery
	if err := c.BindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	q.normalize()

	rows, err := s.DB.ListDecisions(c.Request.Context(), q.Symbol, q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// getTrades returns recent closed round trips.
func (s *Server) getTrades(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "database not configured")
		return
	}
	var q listQuery
	if err := c.BindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	q.normalize()

	rows, err := s.DB.ListClosedTrades(c.Request.Context(), q.Symbol, q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// getPnLSummary aggregates closed trades over a trailing window.
func (s *Server) getPnLSummary(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "database not configured")
		return
	}
	var q struct {
		Days int `form:"days"`
	}
	if err := c.BindQuery(&q); err != nil || q.Days < 0 {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	if q.Days == 0 {
		q.Days = 30
	}

	since := time.Now().AddDate(0, 0, -q.Days)
	summary, err := s.DB.SummarizePnL(c.Request.Context(), since)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":  since.UTC().Format(time.RFC3339),
		"trades": summary.Trades,
		"wins":   summary.Wins,
		"total":  summary.Total,
	})
}

// getMetrics exposes the gateway counters.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "metrics not configured")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// checkBalance triggers a portfolio snapshot immediately, outside the
// report schedule.
func (s *Server) checkBalance(c *gin.Context) {
	if s.Reporter == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "balance reporter not configured")
		return
	}
	summary, err := s.Reporter.Report(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "BROKER_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"portfolio":    summary.Portfolio,
		"evaluation":   summary.PortfolioValue,
		"buying_power": summary.BuyingPower,
		"profit":       summary.Profit,
	})
}
