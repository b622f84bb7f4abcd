package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/responder/internal/config"
	"github.com/ent0n29/responder/internal/events"
	"github.com/ent0n29/responder/internal/memory"
	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/records"
	"github.com/ent0n29/responder/internal/responder"
	"github.com/ent0n29/responder/internal/session"
)

// Starter begins a patient session in the background.
type Starter interface {
	Start(ctx context.Context) (responder.Session, error)
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	starter  Starter
	hub      *events.Hub
	records  records.Store
	audit    memory.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, starter Starter, hub *events.Hub, recordStore records.Store, audit memory.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		starter:  starter,
		hub:      hub,
		records:  recordStore,
		audit:    audit,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only the kiosk screen served from the same origin may attach.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/sessions", s.handleStartSession)
	r.Get("/v1/sessions/current", s.handleCurrentSession)
	r.Get("/v1/sessions/ws", s.handleSessionWS)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Get("/v1/sessions/{id}/transcript", s.handleTranscript)
	r.Get("/v1/records", s.handleListRecords)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

// handleReady checks the record store; a kiosk that cannot file records is not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "record store not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if _, err := s.records.Recent(ctx, 1); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if s.starter == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "session controller not configured")
		return
	}
	sess, err := s.starter.Start(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			respondError(w, http.StatusConflict, "session_in_progress", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "start_failed", err.Error())
		return
	}
	s.metrics.SessionEvent("api_started")
	respondJSON(w, http.StatusAccepted, sess)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Current()
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// handleTranscript returns the redacted audit transcript, which outlives the
// in-memory session snapshot.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "audit store not configured")
		return
	}
	lines, err := s.audit.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "transcript_failed", err.Error())
		return
	}
	if len(lines) == 0 {
		respondError(w, http.StatusNotFound, "session_not_found", session.ErrNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "record store not configured")
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	recs, err := s.records.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "records_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// handleSessionWS streams session events to the kiosk screen and accepts
// start/ping controls from it.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "event hub not configured")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.SessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()
	replies := make(chan events.Event, 16)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			var ev events.Event
			select {
			case <-ctx.Done():
				return
			case e, ok := <-feed:
				if !ok {
					return
				}
				ev = e
			case e := <-replies:
				ev = e
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				cancel()
				return
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	reply := func(ev events.Event) {
		ev.At = time.Now().UTC()
		select {
		case replies <- ev:
		default:
		}
	}

	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := events.ParseClientMessage(data)
		if err != nil {
			reply(events.Event{Type: events.TypeError, Code: "invalid_client_message", Detail: err.Error()})
			continue
		}
		ctl, ok := parsed.(events.ClientControl)
		if !ok {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		switch ctl.Action {
		case events.ActionStart:
			if s.starter == nil {
				reply(events.Event{Type: events.TypeError, Code: "unavailable", Detail: "session controller not configured"})
				continue
			}
			if _, err := s.starter.Start(ctx); err != nil {
				code := "start_failed"
				if errors.Is(err, session.ErrBusy) {
					code = "session_in_progress"
				}
				reply(events.Event{Type: events.TypeError, Code: code, Detail: err.Error()})
			}
		case events.ActionPing:
			ev := events.Event{Type: events.TypeSessionState, State: "idle"}
			if cur, err := s.sessions.Current(); err == nil {
				ev.SessionID = cur.ID
				ev.Subject = cur.Subject
				ev.State = string(cur.State)
				ev.Remaining = events.IntPtr(cur.Remaining)
			}
			reply(ev)
		}
	}

	cancel()
	<-writerDone
	s.metrics.SessionEvent("ws_disconnected")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
