// Package server exposes the session over HTTP.
package server

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/form"
	"github.com/gmllt/dtnboard/internal/metrics"
	"github.com/gmllt/dtnboard/internal/render"
	"github.com/gmllt/dtnboard/internal/session"
)

type Server struct {
	sess    *session.Session
	engine  *render.Engine
	hub     *Hub
	static  fs.FS
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStatic serves assets under /static/.
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) { s.static = fsys }
}

// New wires the live hub into engine so every render reaches open tabs.
func New(sess *session.Session, engine *render.Engine, opts ...Option) *Server {
	s := &Server{sess: sess, engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	if f := engine.Last(); f.Seq > 0 {
		s.hub.Publish(f)
	}
	engine.Subscribe(s.hub)
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/board", s.handleFragment).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.HandleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/board", s.handleBoard).Methods(http.MethodGet)
	api.HandleFunc("/columns", s.handleAddColumn).Methods(http.MethodPost)
	api.HandleFunc("/columns/{column}", s.handleRenameColumn).Methods(http.MethodPut)
	api.HandleFunc("/columns/{column}", s.handleDeleteColumn).Methods(http.MethodDelete)
	api.HandleFunc("/cards", s.handleAddCard).Methods(http.MethodPost)
	api.HandleFunc("/columns/{column}/cards/new", s.handleOpenCreate).Methods(http.MethodGet)
	api.HandleFunc("/columns/{column}/cards/{card}", s.handleCardDetail).Methods(http.MethodGet)
	api.HandleFunc("/columns/{column}/cards/{card}/edit", s.handleOpenEdit).Methods(http.MethodGet)
	api.HandleFunc("/columns/{column}/cards/{card}", s.handleEditCard).Methods(http.MethodPut)
	api.HandleFunc("/columns/{column}/cards/{card}", s.handleDeleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/drag", s.handleStartDrag).Methods(http.MethodPost)
	api.HandleFunc("/drag", s.handleCancelDrag).Methods(http.MethodDelete)
	api.HandleFunc("/drop", s.handleDrop).Methods(http.MethodPost)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.static != nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request", slog.String("method", r.Method), slog.String("path", r.URL.Path),
			slog.Duration("took", time.Since(start)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeBoard(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.engine.Page(w, s.engine.Last()); err != nil {
		s.logger.Error("Failed to render page", slog.String("error", err.Error()))
	}
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.engine.Last().HTML)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.writeBoard(w)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	s.sess.AddColumn(r.Context(), r.FormValue("title"))
	s.writeBoard(w)
}

func (s *Server) handleRenameColumn(w http.ResponseWriter, r *http.Request) {
	s.sess.RenameColumn(r.Context(), mux.Vars(r)["column"], r.FormValue("title"))
	s.writeBoard(w)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	s.sess.DeleteColumn(r.Context(), mux.Vars(r)["column"])
	s.writeBoard(w)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (form.Values, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return form.Values{}, false
	}
	return form.Parse(r.Form), true
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	v, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	s.sess.AddCard(r.Context(), v.Column, v.Fields())
	s.writeBoard(w)
}

func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	v, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	s.sess.EditCard(r.Context(), vars["column"], vars["card"], v.Fields())
	s.writeBoard(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.sess.DeleteCard(r.Context(), vars["column"], vars["card"])
	s.writeBoard(w)
}

func (s *Server) handleOpenCreate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, form.OpenCreate(mux.Vars(r)["column"]))
}

func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var (
		v  form.Values
		ok bool
	)
	s.sess.View(func(b *board.Board) {
		v, ok = form.OpenEdit(b, vars["column"], vars["card"])
	})
	if !ok {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCardDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var (
		d  form.Detail
		ok bool
	)
	s.sess.View(func(b *board.Board) {
		var c *board.Card
		if c, ok = b.FindCard(vars["column"], vars["card"]); ok {
			d = form.NewDetail(vars["column"], *c)
		}
	})
	if !ok {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

type dragRequest struct {
	Column string `json:"column"`
	Card   string `json:"card"`
}

type dragResponse struct {
	State   string `json:"state"`
	Payload string `json:"payload"`
}

func (s *Server) handleStartDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid drag", http.StatusBadRequest)
		return
	}
	payload, err := s.sess.StartDrag(req.Column, req.Card)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, dragResponse{State: s.sess.DragState().String(), Payload: payload})
}

func (s *Server) handleCancelDrag(w http.ResponseWriter, r *http.Request) {
	s.sess.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

type dropRequest struct {
	To      string `json:"to"`
	Payload string `json:"payload"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid drop", http.StatusBadRequest)
		return
	}
	s.sess.Drop(r.Context(), req.To, req.Payload)
	s.writeBoard(w)
}
