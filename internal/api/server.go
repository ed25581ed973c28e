// Package api binds the ingestion and query interfaces to HTTP.
//
// The core components never depend on this package; it translates requests
// into store/coordinator calls and session signals, nothing more.
// Authentication and schema validation of domain payloads are left to
// upstream collaborators.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halyardlabs/snapview/internal/activity"
	"github.com/halyardlabs/snapview/internal/metrics"
	"github.com/halyardlabs/snapview/internal/session"
	"github.com/halyardlabs/snapview/internal/state"
	"github.com/halyardlabs/snapview/internal/store"
)

// Server wires HTTP routes to the store, the session tracker, and the read
// coordinator.
type Server struct {
	store    *store.Store
	tracker  *session.Tracker
	reader   *state.Coordinator
	pageSize int
	logger   *slog.Logger
}

// New creates an API server. pageSize bounds activity query pages.
func New(s *store.Store, tracker *session.Tracker, reader *state.Coordinator, pageSize int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    s,
		tracker:  tracker,
		reader:   reader,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Router returns the HTTP handler for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/activities", s.handleIngest)
	r.Get("/v1/activities", s.handleActivitiesSince)
	r.Get("/v1/state", s.handleCurrentState)
	r.Get("/v1/snapshot", s.handleLatestSnapshot)
	r.Post("/v1/sessions/{agent}/end", s.handleEndSession)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ingestResponse is the body returned for both fresh and duplicate
// ingestion. Duplicate reports whether the uuid had been seen before.
type ingestResponse struct {
	Activity  activity.Activity `json:"activity"`
	Duplicate bool              `json:"duplicate"`
}

// handleIngest accepts {agent, uuid, operator, target, frame, payload},
// assigns ordinal/id/created_at, and feeds the session tracker. Duplicate
// uuids return the prior result idempotently with status 200 instead of 201.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var in activity.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	act, existing, err := s.store.Append(r.Context(), in)
	if err != nil {
		if activity.IsValidationError(err) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("ingest failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	if existing {
		metrics.DuplicateActivities.Inc()
		s.writeJSON(w, http.StatusOK, ingestResponse{Activity: act, Duplicate: true})
		return
	}

	// One RecordActivity per successfully ingested activity; duplicates
	// deliberately do not refresh the session.
	s.tracker.RecordActivity(act.Agent, act.Ordinal, act.CreatedAt)

	s.writeJSON(w, http.StatusCreated, ingestResponse{Activity: act, Duplicate: false})
}

// activitiesResponse pages activities with a continuation cursor.
type activitiesResponse struct {
	Activities []activity.Activity `json:"activities"`
	NextCursor int64               `json:"next_cursor"`
	More       bool                `json:"more"`
}

// handleActivitiesSince returns activities with ordinal strictly greater
// than ?after, ascending, up to ?limit per page.
func (s *Server) handleActivitiesSince(w http.ResponseWriter, r *http.Request) {
	after, err := queryInt(r, "after", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "after must be an integer")
		return
	}
	limit, err := queryInt(r, "limit", int64(s.pageSize))
	if err != nil || limit < 1 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > int64(s.pageSize) {
		limit = int64(s.pageSize)
	}

	acts, next, more, err := s.store.ReadSince(r.Context(), after, int(limit))
	if err != nil {
		s.logger.Error("activity query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	s.writeJSON(w, http.StatusOK, activitiesResponse{
		Activities: acts,
		NextCursor: next,
		More:       more,
	})
}

// handleCurrentState serves the merged current state. Never blocks on an
// in-progress computation.
func (s *Server) handleCurrentState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reader.CurrentState(r.Context())
	if err != nil {
		s.logger.Error("current state failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "state query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// snapshotResponse wraps the latest snapshot with an explicit none marker.
type snapshotResponse struct {
	Snapshot *activity.Snapshot `json:"snapshot"`
	None     bool               `json:"none"`
}

// handleLatestSnapshot returns the stored latest snapshot, or an explicit
// "none" result if no snapshot has ever been computed.
func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context(), activity.TargetAll)
	if errors.Is(err, store.ErrNoSnapshot) {
		s.writeJSON(w, http.StatusOK, snapshotResponse{None: true})
		return
	}
	if err != nil {
		s.logger.Error("snapshot query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "snapshot query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: &snap})
}

// endSessionRequest is the beacon body; last_ordinal is advisory.
type endSessionRequest struct {
	LastOrdinal int64 `json:"last_ordinal"`
}

// handleEndSession consumes the client beacon that closes a session and
// triggers a snapshot immediately.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	agent := chi.URLParam(r, "agent")
	if agent == "" {
		s.writeError(w, http.StatusBadRequest, "agent must not be empty")
		return
	}

	// Beacons often arrive with an empty body; tolerate it.
	var req endSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	s.tracker.EndSession(agent, req.LastOrdinal)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
