package mqtt

import "fmt"

// Topic prefixes for the HomePulse MQTT namespace.
//
// The gateway bridge publishes device attribute changes under
// homepulse/events/device/{device_id}; Core publishes its own status and
// events under homepulse/system and homepulse/core.
const (
	// TopicPrefix is the base for all HomePulse topics.
	TopicPrefix = "homepulse"

	// TopicPrefixEvents is the base for gateway-pushed event topics.
	TopicPrefixEvents = "homepulse/events"

	// TopicPrefixCore is the base for topics published by Core itself.
	TopicPrefixCore = "homepulse/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homepulse/system"
)

// Topics provides builders for HomePulse MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.DeviceEvent("light-bedroom")
//	// Returns: "homepulse/events/device/light-bedroom"
type Topics struct{}

// DeviceEvent returns the topic the gateway bridge publishes attribute
// changes for a single device on.
//
// Example: homepulse/events/device/light-bedroom
func (Topics) DeviceEvent(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", TopicPrefixEvents, deviceID)
}

// AllDeviceEvents returns a pattern matching attribute changes for every
// device.
//
// Pattern: homepulse/events/device/+
func (Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/device/+", TopicPrefixEvents)
}

// CoreAutomationFired returns the topic for automation rule triggers.
//
// Example: homepulse/core/automation/wake-up-lights/fired
func (Topics) CoreAutomationFired(automationID string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefixCore, automationID)
}

// CoreSceneExecuted returns the topic for scene execution events.
//
// Example: homepulse/core/scene/good-morning/executed
func (Topics) CoreSceneExecuted(sceneID string) string {
	return fmt.Sprintf("%s/scene/%s/executed", TopicPrefixCore, sceneID)
}

// SystemStatus returns the system status topic. Core publishes a retained
// online/offline payload here, and the broker publishes the LWT on crash.
//
// Example: homepulse/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all HomePulse topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: homepulse/#
func (Topics) AllTopics() string {
	return "homepulse/#"
}
