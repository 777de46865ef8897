// Package persist saves and loads the whole board under one store key.
//
// Persistence is best-effort: Load falls back to the default board and Save
// only logs, so a broken store degrades the session to memory-only instead
// of interrupting it.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/ident"
	"github.com/gmllt/dtnboard/internal/metrics"
	"github.com/gmllt/dtnboard/internal/store"
)

// Version is written into every saved payload. Payloads without a version
// field predate it and decode as version 0.
const Version = 1

var errNoColumns = errors.New("payload has no columns")

type payload struct {
	Version int             `json:"version"`
	Columns *[]board.Column `json:"columns"`
}

type Gateway struct {
	store   store.Store
	key     string
	timeout time.Duration
	newID   ident.Generator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Gateway)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithGenerator sets the id generator attached to loaded boards.
func WithGenerator(gen ident.Generator) Option {
	return func(g *Gateway) { g.newID = gen }
}

func New(s store.Store, key string, opts ...Option) *Gateway {
	g := &Gateway{
		store:   s,
		key:     key,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load never fails: a missing entry, a payload that is not JSON or one
// without columns all yield the default board.
func (g *Gateway) Load(ctx context.Context) *board.Board {
	b, err := g.load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.logger.Warn("No saved board, using defaults", slog.String("key", g.key))
		} else {
			g.logger.Warn("Could not load board, using defaults", slog.String("key", g.key), slog.String("error", err.Error()))
			g.metrics.PersistenceFailure("load")
		}
		return board.Default(g.newID)
	}
	g.logger.Debug("Board loaded", slog.Int("columns", len(b.Columns)), slog.Int("cards", b.CardCount()))
	return b
}

func (g *Gateway) load(ctx context.Context) (*board.Board, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := g.store.Get(ctx, g.key)
	if err != nil {
		return nil, err
	}
	b, version, err := Decode(data, g.newID)
	if err != nil {
		return nil, err
	}
	if version > Version {
		g.logger.Warn("Board was saved by a newer version", slog.Int("version", version), slog.Int("known", Version))
	}
	return b, nil
}

// Decode parses a saved payload and reports the version it carried.
func Decode(data []byte, gen ident.Generator) (*board.Board, int, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, 0, fmt.Errorf("error decoding board json: %w", err)
	}
	if p.Columns == nil {
		return nil, p.Version, errNoColumns
	}
	b := board.New(gen)
	b.Columns = *p.Columns
	for i := range b.Columns {
		if b.Columns[i].Cards == nil {
			b.Columns[i].Cards = []board.Card{}
		}
	}
	return b, p.Version, nil
}

// Encode produces the payload Save writes.
func Encode(b *board.Board) ([]byte, error) {
	cols := b.Columns
	data, err := json.Marshal(payload{Version: Version, Columns: &cols})
	if err != nil {
		return nil, fmt.Errorf("error encoding board json: %w", err)
	}
	return data, nil
}

// Save writes the board. Failures are logged and dropped; the in-memory
// board stays authoritative.
func (g *Gateway) Save(ctx context.Context, b *board.Board) {
	if err := g.save(ctx, b); err != nil {
		g.logger.Warn("Could not save board", slog.String("key", g.key), slog.String("error", err.Error()))
		g.metrics.PersistenceFailure("save")
	}
}

func (g *Gateway) save(ctx context.Context, b *board.Board) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := Encode(b)
	if err != nil {
		return err
	}
	return g.store.Put(ctx, g.key, data)
}
