package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Post("/refresh", s.handleRefreshDevice)
					r.Post("/commands", s.handleDeviceCommand)
				})
			})

			// Room endpoints
			r.Get("/rooms", s.handleListRooms)

			// Scene endpoints
			r.Route("/scenes", func(r chi.Router) {
				r.Get("/", s.handleListScenes)
				r.Post("/", s.handleCreateScene)
				r.Post("/presets", s.handleCreatePresetScenes)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetScene)
					r.Patch("/", s.handleUpdateScene)
					r.Delete("/", s.handleDeleteScene)
					r.Post("/execute", s.handleExecuteScene)
					r.Get("/executions", s.handleListSceneExecutions)
				})
			})

			// Automation endpoints
			r.Route("/automations", func(r chi.Router) {
				r.Get("/", s.handleListAutomations)
				r.Post("/", s.handleCreateAutomation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAutomation)
					r.Patch("/", s.handleUpdateAutomation)
					r.Delete("/", s.handleDeleteAutomation)
					r.Post("/execute", s.handleExecuteAutomation)
					r.Put("/enabled", s.handleSetAutomationEnabled)
					r.Get("/executions", s.handleListAutomationExecutions)
				})
			})

			// Health suggestion endpoints
			r.Route("/suggestions", func(r chi.Router) {
				r.Get("/", s.handleListSuggestions)
				r.Post("/{sceneID}/activate", s.handleActivateSuggestion)
				r.Post("/{sceneID}/dismiss", s.handleDismissSuggestion)

				r.Route("/monitoring", func(r chi.Router) {
					r.Get("/", s.handleMonitoringStatus)
					r.Post("/start", s.handleStartMonitoring)
					r.Post("/stop", s.handleStopMonitoring)
				})
			})

			// WebSocket (auth via token query param, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the system health status. Degraded dependencies
// (unconfigured gateway, stopped scheduler) show up here rather than
// failing the endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":            "ok",
		"version":           s.version,
		"gateway_connected": s.gateway != nil && s.gateway.IsConfigured(),
		"device_count":      len(s.cache.List()),
	}
	if s.scheduler != nil {
		status["scheduler_running"] = s.scheduler.Running()
	}
	if s.suggestor != nil {
		status["monitoring_running"] = s.suggestor.Running()
	}
	writeJSON(w, http.StatusOK, status)
}
