// Package api provides the HTTP REST API and WebSocket server for
// HomePulse Core.
//
// It exposes device reads and commands, scene and automation CRUD,
// manual execution, and health suggestion management to the dashboard
// UI, plus real-time updates over WebSocket.
//
//	┌─────────────┐   REST    ┌────────────┐
//	│  Dashboard  │──────────▶│   Server   │──▶ device.Cache / Commander
//	│     UI      │◀──────────│  (chi/v5)  │──▶ automation.Store / Executor
//	└─────────────┘ WebSocket └────────────┘──▶ health.Suggestor
//
// All routes live under /api/v1. Authentication is a single-user JWT:
// POST /auth/login exchanges the admin password for a bearer token; the
// WebSocket upgrade authenticates with the same token in a query
// parameter. /health and /auth/login are the only unauthenticated
// routes.
//
// The Hub broadcasts on four channels: device.state_changed,
// automation.fired, scene.executed and suggestions.updated. Clients
// subscribe per channel after connecting.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
