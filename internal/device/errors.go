package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device ID is not in the cache.
	ErrNotFound = errors.New("device: not found")

	// ErrRoomNotFound is returned when a room ID is not in the cache.
	ErrRoomNotFound = errors.New("device: room not found")

	// ErrDeviceOffline is returned when a command targets a device the
	// gateway last reported as unreachable.
	ErrDeviceOffline = errors.New("device: offline")

	// ErrCapabilityUnsupported is returned when a command names a
	// capability the device does not have.
	ErrCapabilityUnsupported = errors.New("device: capability unsupported")

	// ErrInvalidCommand is returned when command arguments fail validation.
	ErrInvalidCommand = errors.New("device: invalid command")
)
