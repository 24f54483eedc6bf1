package device

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/homepulse/homepulse-core/internal/infrastructure/mqtt"
)

// EventSubscriber is the subset of the MQTT client the event feed needs.
type EventSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// attributeEvent is the wire payload the gateway bridge publishes on
// homepulse/events/device/{device_id}.
type attributeEvent struct {
	Online     *bool          `json:"online,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// EventFeed applies gateway-pushed attribute events to the device cache.
//
// The gateway bridge mirrors its cloud event stream onto MQTT; the feed
// subscribes once and funnels every event into Cache.ApplyEvent, which
// performs edge detection and notifies subscribers.
type EventFeed struct {
	cache  *Cache
	logger Logger
}

// NewEventFeed creates an event feed for the given cache.
func NewEventFeed(cache *Cache) *EventFeed {
	return &EventFeed{
		cache:  cache,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the event feed.
func (f *EventFeed) SetLogger(logger Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Start subscribes to the device event topic pattern.
//
// Parameters:
//   - sub: MQTT client to subscribe with
//   - qos: QoS level for the subscription
//
// Returns:
//   - error: If the subscription fails
func (f *EventFeed) Start(sub EventSubscriber, qos byte) error {
	topic := mqtt.Topics{}.AllDeviceEvents()
	if err := sub.Subscribe(topic, qos, f.handleMessage); err != nil {
		return fmt.Errorf("subscribing to device events: %w", err)
	}

	f.logger.Info("device event feed started", "topic", topic)
	return nil
}

// handleMessage parses one event message and applies it to the cache.
func (f *EventFeed) handleMessage(topic string, payload []byte) error {
	deviceID := deviceIDFromTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("unexpected event topic %q", topic)
	}

	var ev attributeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decoding event for %s: %w", deviceID, err)
	}

	f.cache.ApplyEvent(deviceID, ev.Online, ev.Attributes)
	return nil
}

// deviceIDFromTopic extracts the device ID from an event topic.
// Topic shape: homepulse/events/device/{device_id}
func deviceIDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
