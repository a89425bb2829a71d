package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests other than health checks and
// metrics scrapes must carry it as a Bearer token.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/ingest", s.handleIngest)
	mux.HandleFunc("GET /v1/comments/{id}", s.handleGetComment)
	mux.HandleFunc("GET /v1/submissions/{id}", s.handleGetSubmission)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/rejects", s.handleRejects)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest handles POST /v1/ingest. The run is queued and the
// response carries only its request ID.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req events.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.Submit(req, nil)
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
	}
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetComment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleStats handles GET /v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64, 2)
	for _, kind := range []model.RecordKind{model.KindComment, model.KindSubmission} {
		n, err := s.store.CountRecords(r.Context(), kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts[kind.String()] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records":         counts,
		"pending_rejects": s.pendingRejects(),
	})
}

// handleRejects handles GET /v1/rejects, streaming the rejects collected
// since the last flush as JSONL.
func (s *Server) handleRejects(w http.ResponseWriter, _ *http.Request) {
	var snapshot []rejects.Reject
	if s.rejects != nil {
		snapshot = s.rejects.Snapshot()
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if err := rejects.ExportJSONL(snapshot, w); err != nil {
		s.logger.Warn("failed to write rejects", "err", err)
	}
}

func (s *Server) pendingRejects() int {
	if s.rejects == nil {
		return 0
	}
	return s.rejects.Len()
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
