package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    ticker TEXT NOT NULL,
    category TEXT NOT NULL,
    status TEXT NOT NULL,
    side TEXT,
    qty INTEGER DEFAULT 0,
    price REAL DEFAULT 0,
    position INTEGER DEFAULT 0,
    detail TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol, created_at);

CREATE TABLE IF NOT EXISTS closed_trades (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    direction TEXT NOT NULL,
    qty INTEGER NOT NULL,
    entry_price REAL NOT NULL,
    exit_price REAL NOT NULL,
    pnl REAL NOT NULL,
    opened_at DATETIME NOT NULL,
    closed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol, closed_at);

CREATE TABLE IF NOT EXISTS balance_reports (
    id TEXT PRIMARY KEY,
    portfolio TEXT NOT NULL,
    evaluation REAL NOT NULL,
    buying_power REAL DEFAULT 0,
    profit REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// ApplyMigrations bootstraps the schema; keep lightweight for fast startup.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Lightweight, idempotent migrations for older DB files.
	if err := ensureColumn(d.DB, "decisions", "order_id", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(d.DB, "balance_reports", "profit", "REAL DEFAULT 0"); err != nil {
		return err
	}

	return nil
}

// ensureColumn adds a column if it does not already exist.
func ensureColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := db.Exec(alter); err != nil {
		return fmt.Errorf("alter table %s add column %s: %w", table, column, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
