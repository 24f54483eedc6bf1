package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homepulse/homepulse-core/internal/device"
	"github.com/homepulse/homepulse-core/internal/gateway"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListDevices returns all cached devices, with optional filters.
//
// Query parameters:
//   - room_id: filter by room
//   - type: filter by device type (light, lock, thermostat...)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if roomID := r.URL.Query().Get("room_id"); roomID != "" {
		if len(roomID) > maxQueryParamLen {
			writeBadRequest(w, "room_id exceeds maximum length")
			return
		}
		devices := s.cache.ListByRoom(roomID)
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices := s.cache.List()

	if typ := r.URL.Query().Get("type"); typ != "" {
		if len(typ) > maxQueryParamLen {
			writeBadRequest(w, "type exceeds maximum length")
			return
		}
		filtered := devices[:0]
		for _, d := range devices {
			if string(d.Type) == typ {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single cached device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	d, err := s.cache.Get(id)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleRefreshDevice round-trips one device through the gateway and
// returns the freshly cached copy.
func (s *Server) handleRefreshDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	d, err := s.cache.Refresh(r.Context(), id)
	if err != nil {
		writeDeviceError(w, err, "failed to refresh device")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleListRooms returns the cached room list.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.cache.Rooms()
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// commandRequest is the request body for POST /devices/{id}/commands.
type commandRequest struct {
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// handleDeviceCommand issues a capability command against one device.
//
// The command goes straight to the gateway; the cache is updated later
// by the event feed when the gateway reports the resulting attribute
// change, so the response carries no new state.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	if s.commander == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "device commands not available")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Capability == "" || req.Command == "" {
		writeBadRequest(w, "capability and command are required")
		return
	}

	if err := s.commander.SendCommand(r.Context(), id, req.Capability, req.Command, req.Arguments); err != nil {
		writeDeviceError(w, err, "failed to send command")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": "command sent, state updates will follow via WebSocket",
	})
}

// writeDeviceError maps device and gateway errors to HTTP responses.
func writeDeviceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrNotFound), errors.Is(err, gateway.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrDeviceOffline):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device is offline")
	case errors.Is(err, device.ErrCapabilityUnsupported), errors.Is(err, device.ErrInvalidCommand):
		writeBadRequest(w, err.Error())
	case errors.Is(err, gateway.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "gateway not configured")
	case errors.Is(err, gateway.ErrCommandTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeUnavailable, "gateway command timed out")
	default:
		writeInternalError(w, fallback)
	}
}
