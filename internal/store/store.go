// Package store provides the durable key/value backends the board is
// persisted to. Every backend stores whole values under a key; there are
// no partial writes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmllt/dtnboard/internal/config"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open builds the backend selected in cfg.
func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile:
		return NewFile(cfg.File.Dir)
	case config.BackendS3:
		return NewS3(ctx, cfg.S3)
	case config.BackendSQLite:
		return OpenSQL(ctx, "sqlite3", cfg.SQL)
	case config.BackendPostgres:
		return OpenSQL(ctx, "postgres", cfg.SQL)
	case config.BackendNATS:
		return NewNATS(ctx, cfg.NATS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
