package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					raw_description TEXT NOT NULL,
					normalized_vendor TEXT NOT NULL,
					amount TEXT NOT NULL,
					source TEXT NOT NULL,
					nominal_code TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'UNCLASSIFIED',
					matched_rule_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_source ON transactions(source)`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
				`CREATE INDEX idx_transactions_vendor ON transactions(normalized_vendor)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id TEXT PRIMARY KEY,
					vendor_key TEXT NOT NULL,
					nominal_code TEXT NOT NULL,
					tier TEXT NOT NULL,
					confidence REAL NOT NULL,
					support_count INTEGER NOT NULL DEFAULT 0,
					active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL,
					last_used DATETIME
				)`,
				`CREATE INDEX idx_rules_vendor_key ON rules(vendor_key)`,
				// The active-slot invariant: at most one live rule per vendor.
				`CREATE UNIQUE INDEX idx_rules_active_vendor ON rules(vendor_key) WHERE active = 1`,

				`CREATE TABLE IF NOT EXISTS overrides (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					previous_code TEXT NOT NULL DEFAULT '',
					corrected_code TEXT NOT NULL,
					created_rule_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_overrides_transaction ON overrides(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Exception candidate retention",
		Up: func(tx *sql.Tx) error {
			// Best low-confidence suggestion kept on exceptions so review
			// surfaces can show it.
			_, err := tx.Exec(`ALTER TABLE transactions ADD COLUMN suggested_code TEXT NOT NULL DEFAULT ''`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
