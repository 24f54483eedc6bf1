package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homepulse/homepulse-core/internal/health"
)

// requireSuggestor guards the suggestion endpoints when the health
// store is not configured.
func (s *Server) requireSuggestor(w http.ResponseWriter) bool {
	if s.suggestor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "health suggestions not configured")
		return false
	}
	return true
}

// handleListSuggestions returns the current ranked suggestion list.
//
// Query parameters:
//   - refresh: "true" recomputes before returning instead of serving
//     the last cycle's list
func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		s.suggestor.RefreshNow(r.Context())
	}

	suggestions := s.suggestor.Suggestions()
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "count": len(suggestions)})
}

// handleActivateSuggestion executes a suggested scene and dismisses
// the suggestion.
func (s *Server) handleActivateSuggestion(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	sceneID := chi.URLParam(r, "sceneID")
	if sceneID == "" || len(sceneID) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	exec, err := s.suggestor.Activate(r.Context(), sceneID)
	if err != nil {
		if errors.Is(err, health.ErrSuggestionNotFound) {
			writeNotFound(w, "suggestion not found")
			return
		}
		writeRuleError(w, err, "failed to activate suggestion")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleDismissSuggestion removes a suggestion without executing it.
func (s *Server) handleDismissSuggestion(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	sceneID := chi.URLParam(r, "sceneID")
	if sceneID == "" || len(sceneID) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	if err := s.suggestor.Dismiss(sceneID); err != nil {
		if errors.Is(err, health.ErrSuggestionNotFound) {
			writeNotFound(w, "suggestion not found")
			return
		}
		writeInternalError(w, "failed to dismiss suggestion")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleStartMonitoring starts the suggestion engine's background
// cycle. Starting an already-running engine is a no-op.
func (s *Server) handleStartMonitoring(w http.ResponseWriter, _ *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	if err := s.suggestor.Start(); err != nil {
		writeInternalError(w, "failed to start monitoring")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"running": true})
}

// handleStopMonitoring stops the suggestion engine's background cycle.
func (s *Server) handleStopMonitoring(w http.ResponseWriter, _ *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	s.suggestor.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": false})
}

// handleMonitoringStatus reports whether the suggestion engine is
// running.
func (s *Server) handleMonitoringStatus(w http.ResponseWriter, _ *http.Request) {
	if !s.requireSuggestor(w) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"running": s.suggestor.Running()})
}
