// Package server exposes the action server's HTTP surface: the host-facing
// action webhook plus a few read-only operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snowdesk-io/snowdesk/internal/action"
	"github.com/snowdesk-io/snowdesk/internal/incident"
	"github.com/snowdesk-io/snowdesk/internal/logring"
	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Config holds the server's listen settings.
type Config struct {
	Host string
	Port int
}

// Server is the snowdesk action server.
type Server struct {
	registry *action.Registry
	ledger   incident.Store
	logs     *logring.Ring
	cfg      Config
	logger   *slog.Logger
	srv      *http.Server
}

// New creates the server. ledger and logs may be nil.
func New(registry *action.Registry, cfg Config, logger *slog.Logger, ledger incident.Store, logs *logring.Ring) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry: registry,
		ledger:   ledger,
		logs:     logs,
		cfg:      cfg,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /actions", s.handleActions)
	mux.HandleFunc("GET /incidents", s.handleIncidents)
	mux.HandleFunc("GET /logs", s.handleLogs)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("action server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("action server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	var req rasa.ActionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		return
	}
	if req.NextAction == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "next_action is required"})
		return
	}

	act, ok := s.registry.Get(req.NextAction)
	if !ok {
		writeJSON(w, http.StatusNotFound, rasa.ErrorResponse{
			ActionName: req.NextAction,
			Error:      fmt.Sprintf("no registered action found for name %q", req.NextAction),
		})
		return
	}

	disp := &rasa.CollectingDispatcher{}
	events, err := act.Run(r.Context(), disp, &req)
	if err != nil {
		s.logger.Error("action failed",
			"action", req.NextAction,
			"sender_id", req.SenderID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, rasa.ErrorResponse{
			ActionName: req.NextAction,
			Error:      err.Error(),
		})
		return
	}

	if events == nil {
		events = []rasa.Event{}
	}
	responses := disp.Messages
	if responses == nil {
		responses = []rasa.ResponseMessage{}
	}

	s.logger.Debug("action executed",
		"action", req.NextAction,
		"sender_id", req.SenderID,
		"events", len(events),
		"responses", len(responses),
	)
	writeJSON(w, http.StatusOK, rasa.ActionResponse{Events: events, Responses: responses})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusOK, []incident.Record{})
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.ledger.List(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*incident.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logring.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	switch strings.ToLower(r.URL.Query().Get("level")) {
	case "info":
		minLevel = slog.LevelInfo
	case "warn":
		minLevel = slog.LevelWarn
	case "error":
		minLevel = slog.LevelError
	}

	entries := s.logs.Tail(minLevel, limit)
	if entries == nil {
		entries = []logring.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
