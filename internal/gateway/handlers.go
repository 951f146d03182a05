package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/collabcanvas/canvasd/pkg/models"
)

const maxCommandBodySize = 1 << 20

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req models.CommandRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBodySize))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &models.CommandResult{
			Success: false,
			Message: "Failed to execute command",
			Shapes:  []*models.Shape{},
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, &models.CommandResult{
			Success: false,
			Message: "Failed to execute command",
			Shapes:  []*models.Shape{},
			Error:   "command must not be empty",
		})
		return
	}
	if !s.configured() {
		writeJSON(w, http.StatusServiceUnavailable, &models.CommandResult{
			Success: false,
			Message: "Failed to execute command",
			Shapes:  []*models.Shape{},
			Error:   "no LLM provider is configured",
		})
		return
	}

	result := s.executor.Execute(r.Context(), &req)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ForceRecreate(r.Context(), ""); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agent":   s.manager.Stats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":           s.manager.Stats(),
		"active_sessions": s.sessions.CountActive(),
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cleared := s.sessions.Clear(id)
	status := http.StatusOK
	if !cleared {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{
		"session_id": id,
		"cleared":    cleared,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"provider_configured": s.configured(),
		"agent":               s.manager.Stats(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "canvasd",
		"status":  "running",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
