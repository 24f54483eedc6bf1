package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homepulse/homepulse-core/internal/automation"
)

// maxExecutionHistory caps the execution records returned per listing.
const maxExecutionHistory = 50

// handleListScenes returns all scenes.
//
// Query parameters:
//   - favourite: "true" returns only favourite scenes
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var scenes []automation.Scene
	var err error
	if r.URL.Query().Get("favourite") == "true" {
		scenes, err = s.store.ListFavouriteScenes(ctx)
	} else {
		scenes, err = s.store.ListScenes(ctx)
	}
	if err != nil {
		writeInternalError(w, "failed to list scenes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

// handleGetScene returns a single scene by ID.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	scene, err := s.store.GetScene(r.Context(), id)
	if err != nil {
		writeRuleError(w, err, "failed to get scene")
		return
	}

	writeJSON(w, http.StatusOK, scene)
}

// handleCreateScene creates a new scene.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var scene automation.Scene
	if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.CreateScene(r.Context(), &scene); err != nil {
		writeRuleError(w, err, "failed to create scene")
		return
	}

	writeJSON(w, http.StatusCreated, scene)
}

// handleUpdateScene partially updates a scene.
func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	existing, err := s.store.GetScene(r.Context(), id)
	if err != nil {
		writeRuleError(w, err, "failed to get scene")
		return
	}

	// Decode partial update onto the existing scene
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.store.UpdateScene(r.Context(), existing); err != nil {
		writeRuleError(w, err, "failed to update scene")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteScene removes a scene by ID.
func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	if err := s.store.DeleteScene(r.Context(), id); err != nil {
		writeRuleError(w, err, "failed to delete scene")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExecuteScene runs a scene's actions and returns the completed
// execution record. Actions run synchronously; a scene with long delays
// holds the request open, matching the dashboard's progress display.
func (s *Server) handleExecuteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	exec, err := s.executor.ExecuteScene(r.Context(), id, automation.TriggerManual)
	if err != nil {
		writeRuleError(w, err, "failed to execute scene")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleCreatePresetScenes seeds the starter scene set. Idempotent:
// a non-empty scene store returns zero created.
func (s *Server) handleCreatePresetScenes(w http.ResponseWriter, r *http.Request) {
	created, err := s.store.CreatePresetScenes(r.Context())
	if err != nil {
		writeInternalError(w, "failed to create preset scenes")
		return
	}

	status := http.StatusCreated
	if created == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"created": created})
}

// handleListSceneExecutions returns execution history for a scene.
func (s *Server) handleListSceneExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	// Verify the scene exists
	if _, err := s.store.GetScene(r.Context(), id); err != nil {
		writeRuleError(w, err, "failed to get scene")
		return
	}

	executions, err := s.store.ListExecutions(r.Context(), id, maxExecutionHistory)
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

// writeRuleError maps automation store and executor errors to HTTP
// responses. Shared by the scene and automation handlers.
func writeRuleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, automation.ErrSceneNotFound):
		writeNotFound(w, "scene not found")
	case errors.Is(err, automation.ErrAutomationNotFound):
		writeNotFound(w, "automation not found")
	case errors.Is(err, automation.ErrInvalidName),
		errors.Is(err, automation.ErrInvalidTrigger),
		errors.Is(err, automation.ErrInvalidCondition),
		errors.Is(err, automation.ErrInvalidAction),
		errors.Is(err, automation.ErrNoActions):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, automation.ErrDuplicateName):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, automation.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, ErrCodeConflict, "already running")
	case errors.Is(err, automation.ErrConditionsNotMet):
		writeError(w, http.StatusConflict, ErrCodeConflict, "conditions not met")
	default:
		writeInternalError(w, fallback)
	}
}
