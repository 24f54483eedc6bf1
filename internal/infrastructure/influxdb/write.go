package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAutomationFired records an automation firing for dashboard history.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - automationID: Automation identifier
//   - triggerType: The trigger kind that fired (time, sunrise, device, health...)
//   - succeeded, failed, skipped: Per-action outcome counts for the run
func (c *Client) WriteAutomationFired(automationID, triggerType string, succeeded, failed, skipped int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_fired",
		map[string]string{
			"automation_id": automationID,
			"trigger_type":  triggerType,
		},
		map[string]interface{}{
			"succeeded": succeeded,
			"failed":    failed,
			"skipped":   skipped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSceneExecuted records a scene execution for dashboard history.
//
// Parameters:
//   - sceneID: Scene identifier
//   - succeeded, failed, skipped: Per-action outcome counts for the run
func (c *Client) WriteSceneExecuted(sceneID string, succeeded, failed, skipped int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scene_executed",
		map[string]string{
			"scene_id": sceneID,
		},
		map[string]interface{}{
			"succeeded": succeeded,
			"failed":    failed,
			"skipped":   skipped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
