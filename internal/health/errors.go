package health

import "errors"

// Domain errors for the health package.
var (
	// ErrStoreUnavailable is returned when the health store has no
	// InfluxDB connection to query.
	ErrStoreUnavailable = errors.New("health: store unavailable")

	// ErrNoSnapshots is returned when the queried window holds no
	// body-weather data.
	ErrNoSnapshots = errors.New("health: no snapshots")

	// ErrSuggestionNotFound is returned when activating or dismissing a
	// suggestion whose scene is not currently suggested.
	ErrSuggestionNotFound = errors.New("health: suggestion not found")
)
