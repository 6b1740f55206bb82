package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signalgate/internal/cooldown"
	"signalgate/internal/decision"
	"signalgate/internal/events"
	"signalgate/internal/execution"
	"signalgate/internal/monitor"
	"signalgate/internal/pnl"
	"signalgate/internal/registry"
	"signalgate/pkg/alor"
	"signalgate/pkg/db"
)

// SignalHandler turns one webhook alert into a trading decision.
type SignalHandler interface {
	HandleSignal(ctx context.Context, ticker, action string) (decision.Result, error)
}

// BalanceReporter takes an on-demand portfolio snapshot.
type BalanceReporter interface {
	Report(ctx context.Context) (alor.Summary, error)
}

// Server wires HTTP endpoints around the decision engine and event bus.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Engine    SignalHandler
	Ledger    *pnl.Ledger
	Reporter  BalanceReporter
	Registry  *registry.Registry
	Cooldowns *cooldown.Tracker
	Metrics   *monitor.SystemMetrics

	WebhookSecret string
	JWTSecret     string
	Calendar      Calendar
	Meta          SystemMeta
}

// SystemMeta describes runtime status exposed on /health.
type SystemMeta struct {
	InstanceID string
	Portfolio  string
	Exchange   string
	Version    string
	StartedAt  time.Time
}

// Config assembles a Server.
type Config struct {
	Bus           *events.Bus
	DB            *db.Database
	Engine        SignalHandler
	Ledger        *pnl.Ledger
	Reporter      BalanceReporter
	Registry      *registry.Registry
	Cooldowns     *cooldown.Tracker
	Metrics       *monitor.SystemMetrics
	WebhookSecret string
	JWTSecret     string
	Calendar      Calendar
	Meta          SystemMeta

	// RequestTimeout bounds every request. It must exceed the execution
	// engine's worst-case retry schedule (execution.RetryPolicy.Budget)
	// or clearing retries die on the request deadline instead of their
	// configured bound.
	RequestTimeout time.Duration
}

func NewServer(cfg Config) *Server {
	r := gin.New()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = execution.DefaultPolicy().Budget() + time.Minute
	}

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(timeout))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:        r,
		Bus:           cfg.Bus,
		DB:            cfg.DB,
		Engine:        cfg.Engine,
		Ledger:        cfg.Ledger,
		Reporter:      cfg.Reporter,
		Registry:      cfg.Registry,
		Cooldowns:     cfg.Cooldowns,
		Metrics:       cfg.Metrics,
		WebhookSecret: cfg.WebhookSecret,
		JWTSecret:     cfg.JWTSecret,
		Calendar:      cfg.Calendar,
		Meta:          cfg.Meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	s.Router.POST("/webhook/:token", s.webhook)

	api := s.Router.Group("/api")
	{
		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/instruments", s.getInstruments)
			protected.GET("/positions", s.getPositions)
			protected.GET("/cooldowns", s.getCooldowns)
			protected.GET("/decisions", s.getDecisions)
			protected.GET("/trades", s.getTrades)
			protected.GET("/pnl/summary", s.getPnLSummary)
			protected.GET("/metrics", s.getMetrics)
			protected.POST("/balance/check", s.checkBalance)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"instance_id": s.Meta.InstanceID,
		"portfolio":   s.Meta.Portfolio,
		"exchange":    s.Meta.Exchange,
		"version":     s.Meta.Version,
		"uptime":      time.Since(s.Meta.StartedAt).String(),
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
