package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adabot/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// DB is the SQL implementation of Store shared by both drivers. Queries are
// written with ? placeholders and rebound for postgres.
type DB struct {
	sql     *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	loc     *time.Location
	log     zerolog.Logger
}

// Open connects to the configured driver. Timestamps are written in loc.
func Open(cfg config.Database, loc *time.Location, log zerolog.Logger) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "postgres", "postgresql":
		return New(cfg, loc, log)
	case "sqlite", "sqlite3":
		return OpenSQLite(cfg.Path, loc, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// New connects to postgres through a pgx pool.
func New(cfg config.Database, loc *time.Location, log zerolog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	))
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Configure connection pool and statement cache
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	return &DB{
		sql:     stdlib.OpenDBFromPool(pool),
		pool:    pool,
		dialect: dialectPostgres,
		loc:     loc,
		log:     log.With().Str("component", "db").Str("driver", "postgres").Logger(),
	}, nil
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(path string, loc *time.Location, log zerolog.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %q: %w", dir, err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	_, _ = sqlDB.Exec("PRAGMA busy_timeout = 5000")
	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL")

	return &DB{
		sql:     sqlDB,
		dialect: dialectSQLite,
		loc:     loc,
		log:     log.With().Str("component", "db").Str("driver", "sqlite").Logger(),
	}, nil
}

func (db *DB) Close() error {
	err := db.sql.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Tenants returns every guild id that owns at least one task.
func (db *DB) Tenants(ctx context.Context) ([]string, error) {
	rows, err := db.query(ctx, `SELECT DISTINCT guild_id FROM tasks WHERE guild_id IS NOT NULL ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := db.sql.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.sql.QueryRowContext(ctx, db.rebind(query), args...)
}

// rebind turns ? placeholders into $n for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) formatTime(t time.Time) string {
	return t.In(db.loc).Format(time.RFC3339)
}

func (db *DB) formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: db.formatTime(*t), Valid: true}
}

func (db *DB) parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t.In(db.loc), nil
}

func (db *DB) parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := db.parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
