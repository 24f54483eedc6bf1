package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homepulse/homepulse-core/internal/automation"
)

// handleListAutomations returns all automations.
//
// Query parameters:
//   - enabled: "true" returns only enabled automations
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var autos []automation.Automation
	if r.URL.Query().Get("enabled") == "true" {
		autos = s.store.ListEnabledAutomations(ctx)
	} else {
		var err error
		autos, err = s.store.ListAutomations(ctx)
		if err != nil {
			writeInternalError(w, "failed to list automations")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"automations": autos, "count": len(autos)})
}

// handleGetAutomation returns a single automation by ID.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	a, err := s.store.GetAutomation(r.Context(), id)
	if err != nil {
		writeRuleError(w, err, "failed to get automation")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleCreateAutomation creates a new automation.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.CreateAutomation(r.Context(), &a); err != nil {
		writeRuleError(w, err, "failed to create automation")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateAutomation partially updates an automation. Trigger
// state (last fired time and date) is owned by the scheduler and is
// preserved across updates.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	existing, err := s.store.GetAutomation(r.Context(), id)
	if err != nil {
		writeRuleError(w, err, "failed to get automation")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.store.UpdateAutomation(r.Context(), existing); err != nil {
		writeRuleError(w, err, "failed to update automation")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteAutomation removes an automation by ID.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	if err := s.store.DeleteAutomation(r.Context(), id); err != nil {
		writeRuleError(w, err, "failed to delete automation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExecuteAutomation fires an automation manually (the UI's test
// button). Disabled automations may be run this way.
//
// Query parameters:
//   - bypass_conditions: "true" skips condition evaluation
func (s *Server) handleExecuteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	bypass := r.URL.Query().Get("bypass_conditions") == "true"

	exec, err := s.executor.ExecuteAutomation(r.Context(), id, automation.TriggerManual, bypass)
	if err != nil {
		writeRuleError(w, err, "failed to execute automation")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// enabledRequest is the request body for PUT /automations/{id}/enabled.
type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleSetAutomationEnabled toggles an automation on or off. Disabling
// does not cancel a run already in flight.
func (s *Server) handleSetAutomationEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	if err := s.store.SetAutomationEnabled(r.Context(), id, *req.Enabled); err != nil {
		writeRuleError(w, err, "failed to update automation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": *req.Enabled})
}

// handleListAutomationExecutions returns execution history for an automation.
func (s *Server) handleListAutomationExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	// Verify the automation exists
	if _, err := s.store.GetAutomation(r.Context(), id); err != nil {
		writeRuleError(w, err, "failed to get automation")
		return
	}

	executions, err := s.store.ListExecutions(r.Context(), id, maxExecutionHistory)
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}
