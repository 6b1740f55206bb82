package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestDecisionAuditTrail(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 7, 21, 10, 0, 0, 0, time.UTC)
	rows := []Decision{
		{ID: "d1", Symbol: "CRU5", Ticker: "MOEX:CRU2025", Category: "LONG", Status: "open",
			Side: "buy", Qty: 4, Price: 101.5, Position: 4, OrderID: "o1", CreatedAt: base},
		{ID: "d2", Symbol: "CRU5", Ticker: "MOEX:CRU2025", Category: "LONG", Status: "cooldown",
			Position: 4, CreatedAt: base.Add(5 * time.Minute)},
		{ID: "d3", Symbol: "NGN5", Ticker: "MOEX:NGN2025", Category: "SHORT", Status: "open",
			Side: "sell", Qty: 8, Price: 3.1, Position: -8, OrderID: "o2", CreatedAt: base.Add(10 * time.Minute)},
	}
	for _, dec := range rows {
		if err := database.InsertDecision(ctx, dec); err != nil {
			t.Fatalf("Failed to insert decision %s: %v", dec.ID, err)
		}
	}

	t.Run("filter by symbol", func(t *testing.T) {
		got, err := database.ListDecisions(ctx, "CRU5", 100)
		if err != nil {
			t.Fatalf("Failed to list decisions: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 decisions, got %d", len(got))
		}
		// Newest first.
		if got[0].ID != "d2" || got[1].ID != "d1" {
			t.Errorf("wrong order: %s, %s", got[0].ID, got[1].ID)
		}
	})

	t.Run("no-ops are recorded too", func(t *testing.T) {
		got, err := database.ListDecisions(ctx, "", 100)
		if err != nil {
			t.Fatalf("Failed to list decisions: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 decisions, got %d", len(got))
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		got, err := database.ListDecisions(ctx, "", 1)
		if err != nil {
			t.Fatalf("Failed to list decisions: %v", err)
		}
		if len(got) != 1 || got[0].ID != "d3" {
			t.Fatalf("expected only d3, got %+v", got)
		}
	})
}

func TestClosedTradesAndPnLSummary(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 7, 21, 10, 0, 0, 0, time.UTC)
	trades := []ClosedTrade{
		{ID: "t1", Symbol: "CRU5", Direction: "long", Qty: 4,
			EntryPrice: 100, ExitPrice: 102, PnL: 8, OpenedAt: base, ClosedAt: base.Add(time.Hour)},
		{ID: "t2", Symbol: "CRU5", Direction: "short", Qty: 2,
			EntryPrice: 103, ExitPrice: 104, PnL: -2, OpenedAt: base.Add(time.Hour), ClosedAt: base.Add(2 * time.Hour)},
		{ID: "t3", Symbol: "NGN5", Direction: "long", Qty: 8,
			EntryPrice: 3.0, ExitPrice: 3.2, PnL: 1.6, OpenedAt: base, ClosedAt: base.Add(26 * time.Hour)},
	}
	for _, tr := range trades {
		if err := database.InsertClosedTrade(ctx, tr); err != nil {
			t.Fatalf("Failed to insert trade %s: %v", tr.ID, err)
		}
	}

	t.Run("summary over everything", func(t *testing.T) {
		s, err := database.SummarizePnL(ctx, base)
		if err != nil {
			t.Fatalf("Failed to summarize: %v", err)
		}
		if s.Trades != 3 || s.Wins != 2 {
			t.Errorf("trades=%d wins=%d, expected 3/2", s.Trades, s.Wins)
		}
		if s.Total < 7.59 || s.Total > 7.61 {
			t.Errorf("total=%v, expected 7.6", s.Total)
		}
	})

	t.Run("summary window excludes earlier trades", func(t *testing.T) {
		s, err := database.SummarizePnL(ctx, base.Add(25*time.Hour))
		if err != nil {
			t.Fatalf("Failed to summarize: %v", err)
		}
		if s.Trades != 1 || s.Total != 1.6 {
			t.Errorf("trades=%d total=%v, expected 1/1.6", s.Trades, s.Total)
		}
	})

	t.Run("list filtered by symbol", func(t *testing.T) {
		got, err := database.ListClosedTrades(ctx, "CRU5", 10)
		if err != nil {
			t.Fatalf("Failed to list trades: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 trades, got %d", len(got))
		}
		if got[0].ID != "t2" {
			t.Errorf("expected t2 first (newest), got %s", got[0].ID)
		}
	})
}

func TestBalanceReports(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if _, err := database.LatestBalanceReport(ctx, "D00001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty table, got %v", err)
	}

	base := time.Date(2025, 7, 21, 11, 0, 0, 0, time.UTC)
	reports := []BalanceReport{
		{ID: "b1", Portfolio: "D00001", Evaluation: 100000, BuyingPower: 40000, CreatedAt: base},
		{ID: "b2", Portfolio: "D00001", Evaluation: 101500, BuyingPower: 41000, Profit: 1500, CreatedAt: base.Add(7 * time.Hour)},
	}
	for _, r := range reports {
		if err := database.InsertBalanceReport(ctx, r); err != nil {
			t.Fatalf("Failed to insert report %s: %v", r.ID, err)
		}
	}

	got, err := database.LatestBalanceReport(ctx, "D00001")
	if err != nil {
		t.Fatalf("Failed to query latest report: %v", err)
	}
	if got.ID != "b2" || got.Evaluation != 101500 {
		t.Errorf("latest report %+v, expected b2 / 101500", got)
	}
}
