package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/quota"
	"github.com/taskhive/taskhive-server/internal/storage"
)

// envelope is the uniform response shape of the API
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondData responds with a success envelope carrying data
func (s *RESTServer) respondData(w http.ResponseWriter, status int, data interface{}) {
	s.respondJSON(w, status, envelope{Success: true, Data: data})
}

// respondMessage responds with a success envelope carrying only a message
func (s *RESTServer) respondMessage(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, envelope{Success: true, Message: message})
}

// respondError responds with a failure envelope
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, envelope{Success: false, Message: message})
}

// respondOpError maps business errors to status codes: 404 for missing rows,
// 409 for uniqueness conflicts, 403 for authorization and quota denials.
// Anything else is an unexpected failure: logged in full, surfaced as a
// generic 500.
func (s *RESTServer) respondOpError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, auth.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, quota.ErrQuotaExceeded):
		s.respondError(w, http.StatusForbidden, err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePagination reads page/limit query parameters
func parsePagination(r *http.Request) storage.Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return storage.Pagination{Page: page, Limit: limit}
}

// listResponse is the shape of every paginated list payload
type listResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

// HandleHealth is the liveness check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondData(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleReady reports 503 until migrations and seed data have applied
func (s *RESTServer) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		s.respondError(w, http.StatusServiceUnavailable, "migrations in progress")
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	s.respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondData(w, http.StatusOK, map[string]string{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/healthz",
		"ready":   "/api/v1/readyz",
	})
}
