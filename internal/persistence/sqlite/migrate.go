package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one versioned schema step. Statements run inside a single
// transaction together with the version bookkeeping.
type migration struct {
	version     string
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     "001",
		description: "members, events, and sessions",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS members (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_parent INTEGER NOT NULL DEFAULT 0,
				time_zone TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				starts_at TEXT NOT NULL,
				ends_at TEXT NOT NULL,
				creator_id TEXT NOT NULL REFERENCES members(id),
				status TEXT NOT NULL CHECK (status IN ('confirmed', 'pending')),
				notes TEXT,
				location TEXT,
				suggestion_id TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS event_participants (
				event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
				member_id TEXT NOT NULL REFERENCES members(id),
				PRIMARY KEY (event_id, member_id)
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL REFERENCES members(id),
				token TEXT NOT NULL UNIQUE,
				fingerprint TEXT NOT NULL DEFAULT '',
				expires_at TEXT NOT NULL,
				revoked_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
		},
	},
	{
		version:     "002",
		description: "preference documents",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS preferences (
				member_id TEXT PRIMARY KEY,
				document TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
}

// Migrate brings the schema up to date, executing each pending migration in
// order inside its own transaction and recording it in schema_migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		execution_ms INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied := make(map[string]struct{})
	rows, err := cp.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	rows.Close()

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}

		start := time.Now()
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range m.statements {
				if _, err := tx.Exec(statement); err != nil {
					return fmt.Errorf("migration %s failed: %w", m.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at, execution_ms) VALUES (?, ?, ?)`,
				m.version,
				start.UTC().Format(time.RFC3339),
				time.Since(start).Milliseconds(),
			)
			return err
		})
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "applied schema migration",
			slog.String("version", m.version),
			slog.String("description", m.description),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	return nil
}
