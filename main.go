package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denisbrodbeck/machineid"

	"signalgate/internal/api"
	"signalgate/internal/balance"
	"signalgate/internal/cooldown"
	"signalgate/internal/decision"
	"signalgate/internal/events"
	"signalgate/internal/execution"
	"signalgate/internal/monitor"
	"signalgate/internal/notify"
	"signalgate/internal/pnl"
	"signalgate/internal/registry"
	"signalgate/internal/takeprofit"
	"signalgate/pkg/alor"
	"signalgate/pkg/config"
	"signalgate/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	log.Printf("signalgate %s starting on port %s", buildVersion, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exchangeTZ, err := time.LoadLocation(cfg.ExchangeTZ)
	if err != nil {
		log.Fatalf("load exchange timezone %s: %v", cfg.ExchangeTZ, err)
	}

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	reg, err := registry.Load(cfg.InstrumentsPath)
	if err != nil {
		log.Fatalf("load instruments: %v", err)
	}
	log.Printf("instruments loaded: %v", reg.Symbols())

	// Broker client
	broker := alor.New(alor.Config{
		BaseURL:      cfg.AlorBaseURL,
		OAuthURL:     cfg.AlorOAuthURL,
		RefreshToken: cfg.AlorRefreshToken,
		ClientID:     cfg.AlorClientID,
		ClientSecret: cfg.AlorClientSecret,
		Portfolio:    cfg.AlorPortfolio,
		Exchange:     cfg.AlorExchange,
	})

	// Execution with two-layer retries
	policy := execution.RetryPolicy{
		SubmitAttempts:  cfg.SubmitAttempts,
		SubmitBackoff:   cfg.SubmitBackoff,
		ConfirmAttempts: cfg.ConfirmAttempts,
		SettleWait:      cfg.SettleWait,
	}
	executor := execution.NewEngine(broker, policy, bus)

	// Decision engine
	cooldowns := cooldown.NewTracker(reg.Window)
	tpState := takeprofit.NewState()
	engine := decision.NewEngine(decision.Config{
		Registry:   reg,
		Oracle:     broker,
		Executor:   executor,
		Cooldowns:  cooldowns,
		TakeProfit: tpState,
		Bus:        bus,
	})

	// PnL ledger off confirmed fills
	ledger := pnl.NewLedger(database, bus)
	go ledger.Run(ctx)

	// Metrics fed from decision events
	sysMetrics := monitor.NewSystemMetrics()
	(&monitor.Monitor{Bus: bus, Metrics: sysMetrics}).Start(ctx)

	// Telegram notifications
	telegram := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	notify.NewNotifier(bus, telegram).Start(ctx)

	// Scheduled balance reports
	reporter, err := balance.NewReporter(broker, bus, database, cfg.ReportTimes, exchangeTZ)
	if err != nil {
		log.Fatalf("balance reporter: %v", err)
	}
	reporter.Start(ctx)

	// Instance identity for operational messages.
	instanceID, err := machineid.ProtectedID("signalgate")
	if err != nil {
		log.Printf("machine id unavailable: %v", err)
		instanceID = "unknown"
	} else if len(instanceID) > 12 {
		instanceID = instanceID[:12]
	}

	server := api.NewServer(api.Config{
		Bus:           bus,
		DB:            database,
		Engine:        engine,
		Ledger:        ledger,
		Reporter:      reporter,
		Registry:      reg,
		Cooldowns:     cooldowns,
		Metrics:       sysMetrics,
		WebhookSecret: cfg.WebhookSecret,
		JWTSecret:     cfg.JWTSecret,
		// Headroom over the retry schedule so the deadline never cuts a
		// clearing retry short.
		RequestTimeout: policy.Budget() + time.Minute,
		Calendar: api.Calendar{
			BlockWeekends: cfg.BlockWeekends,
			Location:      exchangeTZ,
		},
		Meta: api.SystemMeta{
			InstanceID: instanceID,
			Portfolio:  cfg.AlorPortfolio,
			Exchange:   cfg.AlorExchange,
			Version:    buildVersion,
			StartedAt:  time.Now(),
		},
	})

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	bus.Publish(events.TopicSystem, events.SystemNotice{
		InstanceID: instanceID,
		Message:    fmt.Sprintf("signal gateway %s started, portfolio %s", buildVersion, cfg.AlorPortfolio),
		Timestamp:  time.Now().UTC(),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	bus.Publish(events.TopicSystem, events.SystemNotice{
		InstanceID: instanceID,
		Message:    "signal gateway stopping",
		Timestamp:  time.Now().UTC(),
	})
	cancel()
	time.Sleep(200 * time.Millisecond) // let notification goroutines flush
}
