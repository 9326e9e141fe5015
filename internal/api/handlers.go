package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HealthResponse reports bridge liveness for monitoring probes.
type HealthResponse struct {
	Status        string `json:"status"`
	MQTTConnected bool   `json:"mqtt_connected"`
	EntityCount   int    `json:"entity_count"`
	Version       string `json:"version"`
}

// handleHealth reports whether the MQTT session is up and how many
// entities are currently mirrored. Returns 503 while disconnected so
// orchestrators can restart a wedged bridge.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	connected := s.bridge.Connected()
	resp := HealthResponse{
		Status:        "ok",
		MQTTConnected: connected,
		EntityCount:   s.bridge.EntityCount(),
		Version:       s.version,
	}
	status := http.StatusOK
	if !connected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleEntities dumps the mirrored entity set.
func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	entities := s.bridge.Entities()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(entities),
		"entities": entities,
	})
}

// defaultHistoryLimit bounds history responses when the client does
// not ask for a specific number of rows.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// handleEntityHistory returns recent recorded state changes for one entity.
func (s *Server) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "state history is not enabled")
		return
	}

	entityID := chi.URLParam(r, "id")
	if entityID == "" {
		writeBadRequest(w, "entity id is required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), entityID, limit)
	if err != nil {
		s.logger.Error("failed to load entity history", "entity_id", entityID, "error", err)
		writeInternalError(w, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"count":     len(entries),
		"entries":   entries,
	})
}
