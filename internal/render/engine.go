// Package render rebuilds the board view from the model.
//
// Every Render builds a brand-new tree, binds its handlers, executes the
// templates, pushes the result to subscribers and saves the board. There
// is no diffing against the previous frame; at tens of cards a full
// rebuild costs nothing and no handler can outlive the element it was
// bound to. Revisit if boards grow to thousands of cards.
package render

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"sync"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/metrics"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Saver persists the board once a frame has been built.
type Saver interface {
	Save(ctx context.Context, b *board.Board)
}

// Publisher receives every new frame.
type Publisher interface {
	Publish(f Frame)
}

type Frame struct {
	Seq  uint64
	Tree *Tree
	HTML []byte // the "board" fragment
}

type Engine struct {
	tmpl    *template.Template
	saver   Saver
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	subs []Publisher
	seq  uint64
	last Frame
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(saver Saver, opts ...Option) (*Engine, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	e := &Engine{tmpl: tmpl, saver: saver, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Subscribe(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, p)
}

// Render rebuilds the view for b and saves b.
func (e *Engine) Render(ctx context.Context, b *board.Board) Frame {
	tree := Build(b)
	Bind(tree)

	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, "board", tree); err != nil {
		e.logger.Error("Board template failed", slog.String("error", err.Error()))
	}

	e.mu.Lock()
	e.seq++
	f := Frame{Seq: e.seq, Tree: tree, HTML: buf.Bytes()}
	e.last = f
	subs := append([]Publisher(nil), e.subs...)
	e.mu.Unlock()

	for _, s := range subs {
		s.Publish(f)
	}
	e.metrics.Rendered(b.CardCount())
	e.logger.Debug("Board rendered", slog.Uint64("seq", f.Seq), slog.Int("cards", b.CardCount()))

	e.saver.Save(ctx, b)
	return f
}

// Last returns the most recent frame.
func (e *Engine) Last() Frame {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

type pageData struct {
	Board      *Tree
	Categories []string
	Other      string
}

// Page writes the full document around f.
func (e *Engine) Page(w io.Writer, f Frame) error {
	if f.Tree == nil {
		f.Tree = &Tree{}
	}
	return e.tmpl.ExecuteTemplate(w, "page", pageData{
		Board:      f.Tree,
		Categories: board.Known,
		Other:      board.Other,
	})
}
