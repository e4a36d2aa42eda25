package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the history index schema. Entries are keyed by
// (collection, user, id) so an id is only meaningful within one user's
// history.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS entries (
			collection_id   INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			user_id         TEXT NOT NULL,
			id              TEXT NOT NULL,
			url             TEXT NOT NULL,
			title           TEXT NOT NULL DEFAULT '',
			ts              INTEGER NOT NULL,
			topic           TEXT NOT NULL DEFAULT 'Uncategorized',
			domain          TEXT NOT NULL DEFAULT '',
			path            TEXT NOT NULL DEFAULT '',
			document        TEXT NOT NULL DEFAULT '',
			embedding       BLOB,
			embedding_model TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection_id, user_id, id)
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			action     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			collection TEXT NOT NULL DEFAULT '',
			user_id    TEXT NOT NULL DEFAULT '',
			affected   INTEGER NOT NULL DEFAULT 0,
			ts         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_entries_user_ts    ON entries(collection_id, user_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_topic ON entries(collection_id, user_id, topic)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_ts         ON entries(collection_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts       ON audit_log(ts)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
