// Package influxdb provides InfluxDB connectivity for HomePulse Core.
//
// It wraps the official influxdb-client-go v2 library with HomePulse-specific
// patterns for connection management, querying, and health monitoring.
//
// # Purpose
//
// This package handles time-series data access for:
//   - Health telemetry ("body weather" snapshots written by the wellness tracker)
//   - Automation and scene execution history for dashboard graphs
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homepulse",
//	    Bucket: "health",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Query recent snapshots via Flux
//	result, err := client.QueryAPI().Query(ctx, fluxQuery)
//
//	// Record an automation firing
//	client.WriteAutomationFired("wake-up-lights", "time", 3, 0, 0)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection, query and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// Queries are synchronous and should be given a bounded context.
package influxdb
