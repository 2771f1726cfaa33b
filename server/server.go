// Package server exposes the relay over HTTP: the backend-facing /emit
// bridge, the browser-facing /ws upgrade, and the health and stats probes.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperr "office-relay/errors"
	"office-relay/hub"
	"office-relay/observability"
	"office-relay/relay"
)

type Server struct {
	log        *slog.Logger
	translator *relay.Translator
	hub        *hub.Hub
	monitor    *observability.Monitor
	maxBody    int64
}

func New(log *slog.Logger, translator *relay.Translator, h *hub.Hub, monitor *observability.Monitor, maxBody int64) *Server {
	return &Server{log: log, translator: translator, hub: h, monitor: monitor, maxBody: maxBody}
}

// Router builds the HTTP surface. Every route sits behind the permissive
// CORS layer because the relay is called cross-origin by both the backend
// bridge and browser clients.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(permissiveCORS)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.hub.ServeWS)
	r.Post("/emit", s.handleEmit)

	return r
}

// permissiveCORS reflects any origin and allows credentials, matching the
// trust model of a relay that performs no authentication of its own.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type emitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleEmit accepts one relay envelope per request. The 200 only means
// the event entered the publish queue: delivery is fire-and-forget and a
// roomless event succeeds without reaching anyone.
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("Panic while relaying", "panic", rec)
			writeJSON(w, http.StatusInternalServerError, emitResponse{Error: "internal_error"})
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var env relay.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.log.Warn("Rejecting unreadable emit request", "error", err)
		writeJSON(w, http.StatusBadRequest, emitResponse{Error: "event_required"})
		return
	}

	if err := s.translator.Relay(env); err != nil {
		if errors.Is(err, apperr.ErrEventRequired) {
			writeJSON(w, http.StatusBadRequest, emitResponse{Error: "event_required"})
			return
		}
		s.log.Error("Relay failed", "event", env.Event, "error", err)
		writeJSON(w, http.StatusInternalServerError, emitResponse{Error: "internal_error"})
		return
	}

	s.monitor.IncrEventsRelayed()
	writeJSON(w, http.StatusOK, emitResponse{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats refreshes the snapshot on demand so probes never read a
// stale interval.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.monitor.Refresh()
	writeJSON(w, http.StatusOK, s.monitor.GetLatest())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
