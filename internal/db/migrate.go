package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// pgDuplicateColumn is SQLSTATE duplicate_column.
const pgDuplicateColumn = "42701"

var createTables = map[dialect][]string{
	dialectSQLite: {
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			assigned_to TEXT,
			reminder_interval INTEGER,
			anchor_time TEXT,
			due_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS clockpoint (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT,
			check_in TEXT,
			check_out TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS meetings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participants TEXT,
			topics TEXT,
			check_in TEXT,
			check_out TEXT
		)`,
	},
	dialectPostgres: {
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title TEXT,
			assigned_to TEXT,
			reminder_interval BIGINT,
			anchor_time TEXT,
			due_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS clockpoint (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT,
			check_in TEXT,
			check_out TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS meetings (
			id BIGSERIAL PRIMARY KEY,
			participants TEXT,
			topics TEXT,
			check_in TEXT,
			check_out TEXT
		)`,
	},
}

// Columns added after the first schema. Re-running them on an up to date
// database fails with a duplicate column error, which is ignored.
var addedColumns = []struct {
	table, column, typ string
}{
	{"tasks", "status", "TEXT"},
	{"tasks", "guild_id", "TEXT"},
	{"clockpoint", "guild_id", "TEXT"},
	{"meetings", "guild_id", "TEXT"},
}

var createIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_tasks_guild ON tasks (guild_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clockpoint_guild_user ON clockpoint (guild_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_guild ON meetings (guild_id)`,
}

// Migrate brings the schema up to date. It is safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range createTables[db.dialect] {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating table: %w", err)
		}
	}

	for _, c := range addedColumns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			pq.QuoteIdentifier(c.table), pq.QuoteIdentifier(c.column), c.typ)
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			if isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("error adding column %s.%s: %w", c.table, c.column, err)
		}
		db.log.Info().Str("table", c.table).Str("column", c.column).Msg("column added")
	}

	for _, stmt := range createIndexes {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating index: %w", err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateColumn
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
