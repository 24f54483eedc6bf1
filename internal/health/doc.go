// Package health provides the body-weather store client and the scene
// suggestion engine for HomePulse Core.
//
// Body weather is the user's self-reported state: pain, energy, mood
// and anxiety, each on a 0-10 scale. Snapshots are written by the
// companion tracking app into InfluxDB; this package only reads them.
//
// The Suggestor runs a five-minute background cycle that matches the
// latest snapshot and the current time-of-day against a fixed, ordered
// rule table, resolves each matched rule to a concrete scene, and
// broadcasts the ranked suggestion list. Suggestions can be activated
// (scene runs, suggestion dismissed) or dismissed outright; the
// dismissed set lives for the process lifetime only.
//
// # Key Types
//
//   - Snapshot: One body-weather reading with optional per-metric values
//   - Store: Flux-backed reader over the InfluxDB health bucket
//   - Suggestor: Background suggestion engine with Start/Stop lifecycle
//   - Suggestion: A ranked scene recommendation with its reason
//
// # Usage
//
//	store := health.NewStore(influxClient, 7)
//	suggestor := health.NewSuggestor(store, scenes, runner, location)
//	suggestor.SetLogger(log)
//
//	if err := suggestor.Start(); err != nil {
//	    return err
//	}
//	defer suggestor.Stop()
package health
