package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and
// ensures all required tables exist. Pass ":memory:" for an in-memory
// database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price TEXT,
			placed_at DATETIME NOT NULL,
			trading_day TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_day ON orders(trading_day)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,

		`CREATE TABLE IF NOT EXISTS call_candidates (
			call_id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			mobile_number TEXT NOT NULL,
			recording TEXT NOT NULL,
			call_start DATETIME NOT NULL,
			call_end DATETIME NOT NULL,
			call_day TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_client_day ON call_candidates(client_id, call_day)`,

		`CREATE TABLE IF NOT EXISTS email_instructions (
			group_id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity INTEGER,
			value TEXT,
			price TEXT,
			price_is_market INTEGER NOT NULL DEFAULT 0,
			received_at DATETIME,
			instruction_day TEXT NOT NULL,
			message_ids TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instructions_client_day ON email_instructions(client_id, instruction_day)`,

		`CREATE TABLE IF NOT EXISTS evidence_reports (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			record_count INTEGER NOT NULL,
			ingested_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS surveillance_runs (
			id TEXT PRIMARY KEY,
			trading_day TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			summary TEXT NOT NULL,
			unmatched_instructions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_day ON surveillance_runs(trading_day, started_at)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_records (
			run_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			order_status TEXT NOT NULL,
			channel TEXT NOT NULL,
			match_type TEXT NOT NULL,
			evidence_id TEXT,
			group_order_ids TEXT,
			confidence REAL NOT NULL,
			disposition TEXT NOT NULL,
			requires_audit INTEGER NOT NULL,
			unmatched_reason TEXT,
			PRIMARY KEY (run_id, order_id),
			FOREIGN KEY (run_id) REFERENCES surveillance_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_disposition ON reconciliation_records(run_id, disposition)`,
		`CREATE INDEX IF NOT EXISTS idx_records_audit ON reconciliation_records(run_id, requires_audit)`,

		`CREATE TABLE IF NOT EXISTS discrepancies (
			run_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			channel TEXT NOT NULL,
			instructed TEXT NOT NULL,
			executed TEXT NOT NULL,
			explanation TEXT NOT NULL,
			informational INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (run_id) REFERENCES surveillance_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_order ON discrepancies(run_id, order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_severity ON discrepancies(run_id, severity)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
