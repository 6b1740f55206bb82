// Package db persists the signal audit trail and closed-trade ledger
// in a local SQLite file.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("record not found")

// InsertDecision records one handled signal.
func (d *Database) InsertDecision(ctx context.Context, dec Decision) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO decisions (
			id, symbol, ticker, category, status, side, qty, price, position, detail, order_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, dec.ID, dec.Symbol, dec.Ticker, dec.Category, dec.Status, dec.Side,
		dec.Qty, dec.Price, dec.Position, dec.Detail, dec.OrderID, dec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListDecisions returns the most recent decisions, optionally filtered
// by symbol. Pass an empty symbol for all instruments.
func (d *Database) ListDecisions(ctx context.Context, symbol string, limit int) ([]Decision, error) {
	query := `
		SELECT id, symbol, ticker, category, status, COALESCE(side, ''),
		       qty, price, position, COALESCE(detail, ''), COALESCE(order_id, ''), created_at
		FROM decisions`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var dec Decision
		if err := rows.Scan(&dec.ID, &dec.Symbol, &dec.Ticker, &dec.Category, &dec.Status,
			&dec.Side, &dec.Qty, &dec.Price, &dec.Position, &dec.Detail, &dec.OrderID, &dec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, dec)
	}
	return out, rows.Err()
}

// InsertClosedTrade records one completed round trip.
func (d *Database) InsertClosedTrade(ctx context.Context, t ClosedTrade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO closed_trades (
			id, symbol, direction, qty, entry_price, exit_price, pnl, opened_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Symbol, t.Direction, t.Qty, t.EntryPrice, t.ExitPrice, t.PnL, t.OpenedAt, t.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// ListClosedTrades returns the most recent closed trades, optionally
// filtered by symbol.
func (d *Database) ListClosedTrades(ctx context.Context, symbol string, limit int) ([]ClosedTrade, error) {
	query := `
		SELECT id, symbol, direction, qty, entry_price, exit_price, pnl, opened_at, closed_at
		FROM closed_trades`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY closed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query closed trades: %w", err)
	}
	defer rows.Close()

	var out []ClosedTrade
	for rows.Next() {
		var t ClosedTrade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Direction, &t.Qty,
			&t.EntryPrice, &t.ExitPrice, &t.PnL, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SummarizePnL aggregates closed trades since the given time.
func (d *Database) SummarizePnL(ctx context.Context, since time.Time) (PnLSummary, error) {
	var s PnLSummary
	err := d.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM closed_trades
		WHERE closed_at >= ?
	`, since).Scan(&s.Trades, &s.Wins, &s.Total)
	if err != nil {
		return PnLSummary{}, fmt.Errorf("summarize pnl: %w", err)
	}
	return s, nil
}

// InsertBalanceReport stores a portfolio snapshot.
func (d *Database) InsertBalanceReport(ctx context.Context, r BalanceReport) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO balance_reports (id, portfolio, evaluation, buying_power, profit, created_at)
		VALUES (?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, r.ID, r.Portfolio, r.Evaluation, r.BuyingPower, r.Profit, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert balance report: %w", err)
	}
	return nil
}

// LatestBalanceReport returns the most recent snapshot for a portfolio.
func (d *Database) LatestBalanceReport(ctx context.Context, portfolio string) (BalanceReport, error) {
	var r BalanceReport
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, portfolio, evaluation, buying_power, COALESCE(profit, 0), created_at
		FROM balance_reports
		WHERE portfolio = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, portfolio).Scan(&r.ID, &r.Portfolio, &r.Evaluation, &r.BuyingPower, &r.Profit, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BalanceReport{}, ErrNotFound
		}
		return BalanceReport{}, fmt.Errorf("query balance report: %w", err)
	}
	return r, nil
}
