// Package postgres provides a Postgres-backed ledger store. Each row
// lives as (ledger, position, cells text[]); position preserves table
// order across appends.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smorales/jobharvester/internal/ledger"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target relation.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// DB is the pool surface the store needs; pgxpool.Pool and pgxmock
// both satisfy it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Store implements ledger.Store on Postgres.
type Store struct {
	db    DB
	table string
}

// NewStore connects a pool and returns the store. The relation is
// expected to exist:
//
//	CREATE TABLE ledger_rows (
//	  ledger   TEXT NOT NULL,
//	  position BIGSERIAL,
//	  cells    TEXT[] NOT NULL
//	);
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool, table: table}, nil
}

// NewStoreWithDB constructs a store from an existing pool, primarily
// for testing.
func NewStoreWithDB(db DB, table string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "ledger_rows"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// ReadAllRows returns the ledger's rows ordered by position.
func (s *Store) ReadAllRows(ctx context.Context, name string) ([]ledger.Row, error) {
	query := fmt.Sprintf(`SELECT cells FROM %s WHERE ledger = $1 ORDER BY position`, s.table)
	rows, err := s.db.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", name, err)
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		var cells []string
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("scan ledger %s row: %w", name, err)
		}
		out = append(out, ledger.Row(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger %s: %w", name, err)
	}
	return out, nil
}

// AppendRows appends rows in input order inside one transaction, so an
// append never leaves a partial batch behind.
func (s *Store) AppendRows(ctx context.Context, name string, rows []ledger.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append to %s: %w", name, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (ledger, cells) VALUES ($1, $2)`, s.table)
	for _, row := range rows {
		if _, err := tx.Exec(ctx, query, name, []string(row)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("append to ledger %s: %w", name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append to %s: %w", name, err)
	}
	return nil
}

// Clear removes every row of the ledger.
func (s *Store) Clear(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE ledger = $1`, s.table)
	if _, err := s.db.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("clear ledger %s: %w", name, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
