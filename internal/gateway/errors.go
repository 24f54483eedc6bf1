package gateway

import "errors"

// Sentinel errors for gateway operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, gateway.ErrNotConfigured) {
//	    // Handle unconfigured gateway (degraded mode)
//	}
var (
	// ErrNotConfigured indicates no gateway token is configured.
	// All gateway calls fail fast with this error; the system itself
	// keeps running in a degraded state.
	ErrNotConfigured = errors.New("gateway: not configured")

	// ErrDeviceNotFound indicates the gateway does not know the device.
	ErrDeviceNotFound = errors.New("gateway: device not found")

	// ErrCommandTimeout indicates a command did not complete within the
	// configured per-command timeout.
	ErrCommandTimeout = errors.New("gateway: command timeout")

	// ErrCommandFailed indicates the gateway accepted the request but
	// reported failure, or returned an unexpected status.
	ErrCommandFailed = errors.New("gateway: command failed")

	// ErrRequestFailed indicates a registry read (devices, rooms, status)
	// failed at the HTTP level.
	ErrRequestFailed = errors.New("gateway: request failed")
)
