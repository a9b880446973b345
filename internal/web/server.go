// Package web serves the browser chat UI and its JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"pgagent/internal/chat"
	"pgagent/internal/journal"
	"pgagent/internal/status"
)

// SessionCookie identifies a browser's chat transcript.
const SessionCookie = "pgagent_session"

//go:embed static/index.html
var staticFS embed.FS

// StatusSource reports MCP server availability. *status.Monitor implements it.
type StatusSource interface {
	Status(ctx context.Context) status.Status
}

// TurnLister lists journaled turns. *journal.Store implements it.
type TurnLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Turn, error)
}

// Server wires the HTTP API to the chat service.
type Server struct {
	chat    *chat.Service
	status  StatusSource
	turns   TurnLister
	timeout time.Duration
}

// NewServer creates a Server. turns may be nil when the journal is off.
// timeout is the per-request limit, shown in the UI.
func NewServer(svc *chat.Service, st StatusSource, turns TurnLister, timeout time.Duration) *Server {
	return &Server{chat: svc, status: st, turns: turns, timeout: timeout}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/quick-actions", s.handleListQuickActions)
		r.Get("/examples", s.handleExamples)
		r.Get("/turns", s.handleTurns)

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware)
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handlePostMessage)
			r.Delete("/messages", s.handleClearMessages)
			r.Post("/quick-actions/{id}", s.handleQuickAction)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		// Turns can run for the full request timeout.
		WriteTimeout: s.timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("web UI listening", "url", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// --- Handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          st,
		"headline":        st.Headline(),
		"timeout_seconds": int(s.timeout.Seconds()),
	})
}

func (s *Server) handleListQuickActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.QuickActions())
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.Examples())
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		writeError(w, http.StatusNotFound, "journal is disabled (set PGAGENT_JOURNAL_DSN)")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}
	turns, err := s.turns.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("list turns", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}
	if turns == nil {
		turns = []journal.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Messages(sessionID(r.Context())))
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.submit(w, r, req.Message)
}

func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	qa, ok := chat.QuickActionByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown quick action")
		return
	}
	s.submit(w, r, qa.Query)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, text string) {
	msg, err := s.chat.Submit(r.Context(), sessionID(r.Context()), text)
	switch {
	case errors.Is(err, chat.ErrEmpty):
		writeError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, msg)
	}
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(sessionID(r.Context())); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Utilities ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
