package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gmllt/dtnboard/internal/config"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL keeps values in a two-column key/value table. The statements are
// valid for both sqlite3 and postgres.
type SQL struct {
	db    *sql.DB
	table string
}

// OpenSQL connects with driver ("sqlite3" or "postgres") and creates the
// table when missing.
func OpenSQL(ctx context.Context, driver string, cfg config.SQLConfig) (*SQL, error) {
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s, err := NewSQL(ctx, db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database.
func NewSQL(ctx context.Context, db *sql.DB, table string) (*SQL, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("sql store: invalid table name %q", table)
	}
	ddl := `CREATE TABLE IF NOT EXISTS ` + table + ` (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("sql store: create table: %w", err)
	}
	return &SQL{db: db, table: table}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM ` + s.table + ` WHERE key = $1`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql store: get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO ` + s.table + ` (key, value, updated_at)
	 VALUES ($1, $2, CURRENT_TIMESTAMP)
	 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("sql store: put %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
