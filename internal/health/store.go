package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/homepulse/homepulse-core/internal/infrastructure/influxdb"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// measurement is the series the tracking app writes snapshots to.
const measurement = "body_weather"

// Store reads body-weather snapshots from InfluxDB.
//
// The store is read-only: snapshots are written by the companion
// tracking app, never by the core. A nil client puts the store in
// degraded mode where every query returns ErrStoreUnavailable; the
// rest of the system treats that as "no health data", not a fault.
type Store struct {
	client *influxdb.Client // may be nil (degraded)
	days   int
	logger Logger
}

// NewStore creates a snapshot store reading the most recent days of
// data. A nil client is allowed and yields a degraded store.
func NewStore(client *influxdb.Client, days int) *Store {
	if days <= 0 {
		days = 7
	}
	return &Store{
		client: client,
		days:   days,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Available reports whether the store has a live InfluxDB connection.
func (s *Store) Available() bool {
	return s.client != nil && s.client.IsConnected()
}

// Recent returns the configured window of snapshots, most recent first.
//
// Returns:
//   - []Snapshot: Snapshots ordered newest to oldest, may be empty
//   - error: ErrStoreUnavailable without a connection, or a query error
func (s *Store) Recent(ctx context.Context) ([]Snapshot, error) {
	if !s.Available() {
		return nil, ErrStoreUnavailable
	}

	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dd)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r._field == "pain" or r._field == "energy" or r._field == "mood" or r._field == "anxiety")
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		s.client.Bucket(), s.days, measurement)

	result, err := s.client.QueryAPI().Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}

	var snapshots []Snapshot
	for result.Next() {
		rec := result.Record()
		snap := Snapshot{Timestamp: rec.Time()}
		snap.Pain = intField(rec.ValueByKey(MetricPain))
		snap.Energy = intField(rec.ValueByKey(MetricEnergy))
		snap.Mood = intField(rec.ValueByKey(MetricMood))
		snap.Anxiety = intField(rec.ValueByKey(MetricAnxiety))
		snapshots = append(snapshots, snap)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshots: %w", err)
	}

	// Most recent first, whatever order the pivot emitted.
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})

	s.logger.Debug("snapshots fetched", "count", len(snapshots), "days", s.days)
	return snapshots, nil
}

// Latest returns the most recent snapshot in the window.
//
// Returns:
//   - *Snapshot: The newest snapshot
//   - error: ErrNoSnapshots when the window is empty
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	snapshots, err := s.Recent(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	return &snapshots[0], nil
}

// LatestMetric returns the named metric from the most recent snapshot
// that reports it. The ok return is false when no snapshot in the
// window carries the metric; an unavailable store reports (0, false,
// nil) so health triggers silently sit out degraded mode.
func (s *Store) LatestMetric(ctx context.Context, metric string) (int, bool, error) {
	if !s.Available() {
		return 0, false, nil
	}

	snapshots, err := s.Recent(ctx)
	if err != nil {
		return 0, false, err
	}
	for i := range snapshots {
		if v, ok := snapshots[i].Metric(metric); ok {
			return v, true, nil
		}
	}
	return 0, false, nil
}

// intField converts a Flux value (int64 or float64 depending on how the
// point was written) to an optional int.
func intField(v any) *int {
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	default:
		return nil
	}
}

// staleAfter bounds how old a snapshot can be and still drive
// suggestions. Readings older than this are treated as absent.
const staleAfter = 24 * time.Hour
