// Package session owns the board for the lifetime of the process.
//
// A Session is obtained once at startup and handed to whatever drives it.
// Interactions are serialized: each one mutates the board, then renders it,
// and rendering saves it, before the next interaction is let in.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/dnd"
	"github.com/gmllt/dtnboard/internal/metrics"
	"github.com/gmllt/dtnboard/internal/render"
)

// Loader supplies the board at startup.
type Loader interface {
	Load(ctx context.Context) *board.Board
}

// Renderer rebuilds the view and persists the board.
type Renderer interface {
	Render(ctx context.Context, b *board.Board) render.Frame
}

type Session struct {
	mu      sync.Mutex
	board   *board.Board
	engine  Renderer
	drag    dnd.Tracker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Open loads the board and renders it once.
func Open(ctx context.Context, l Loader, r Renderer, opts ...Option) *Session {
	s := &Session{board: l.Load(ctx), engine: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Render(ctx, s.board)
	return s
}

// do runs one interaction. The board is rendered, and therefore saved,
// even when fn left it unchanged.
func (s *Session) do(ctx context.Context, op string, fn func(b *board.Board) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := fn(s.board)
	s.metrics.Mutation(op, applied)
	if !applied {
		s.logger.Debug("Interaction left board unchanged", slog.String("op", op))
	}
	s.engine.Render(ctx, s.board)
	return applied
}

func (s *Session) AddColumn(ctx context.Context, title string) (board.Column, bool) {
	var col board.Column
	ok := s.do(ctx, "add_column", func(b *board.Board) bool {
		c, ok := b.AddColumn(title)
		if ok {
			col = *c
		}
		return ok
	})
	return col, ok
}

func (s *Session) RenameColumn(ctx context.Context, columnID, title string) bool {
	return s.do(ctx, "rename_column", func(b *board.Board) bool {
		return b.RenameColumn(columnID, title)
	})
}

func (s *Session) DeleteColumn(ctx context.Context, columnID string) bool {
	return s.do(ctx, "delete_column", func(b *board.Board) bool {
		return b.DeleteColumn(columnID)
	})
}

func (s *Session) AddCard(ctx context.Context, columnID string, f board.Fields) (board.Card, bool) {
	var card board.Card
	ok := s.do(ctx, "add_card", func(b *board.Board) bool {
		c, ok := b.AddCard(columnID, f)
		if ok {
			card = *c
		}
		return ok
	})
	return card, ok
}

func (s *Session) EditCard(ctx context.Context, columnID, cardID string, f board.Fields) bool {
	return s.do(ctx, "edit_card", func(b *board.Board) bool {
		return b.EditCard(columnID, cardID, f)
	})
}

func (s *Session) DeleteCard(ctx context.Context, columnID, cardID string) bool {
	return s.do(ctx, "delete_card", func(b *board.Board) bool {
		return b.DeleteCard(columnID, cardID)
	})
}

func (s *Session) MoveCard(ctx context.Context, fromColumnID, toColumnID, cardID string) bool {
	return s.do(ctx, "move_card", func(b *board.Board) bool {
		return b.MoveCard(fromColumnID, toColumnID, cardID)
	})
}

// StartDrag picks a card up. It neither mutates nor renders the board; the
// returned payload is what a later Drop without a payload falls back to.
func (s *Session) StartDrag(fromColumnID, cardID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Start(dnd.Intent{FromColumnID: fromColumnID, CardID: cardID})
}

// CancelDrag ends a drag released outside every drop zone.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
}

// DragState reports where the current drag gesture stands.
func (s *Session) DragState() dnd.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.State()
}

// Drop delivers a drag payload to the zone of toColumnID. An empty payload
// falls back to the card picked up by StartDrag. A payload that does not
// decode leaves the board untouched.
func (s *Session) Drop(ctx context.Context, toColumnID, payload string) bool {
	return s.do(ctx, "drop", func(b *board.Board) bool {
		moved, err := s.drag.Drop(toColumnID, payload, b)
		if err != nil {
			s.logger.Warn("Ignoring drop", slog.String("column", toColumnID), slog.String("error", err.Error()))
		}
		return moved
	})
}

// View runs fn against the live board. fn must not keep b or mutate it.
func (s *Session) View(fn func(b *board.Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.board)
}

// Snapshot returns a copy of the board.
func (s *Session) Snapshot() *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}
