package device

import (
	"time"
)

// Type categorises a device by what it is.
type Type string

// Device types recognised by the cache and the automation engine.
const (
	TypeLight      Type = "light"
	TypeSwitch     Type = "switch"
	TypePlug       Type = "plug"
	TypeThermostat Type = "thermostat"
	TypeLock       Type = "lock"
	TypeSensor     Type = "sensor"
	TypeSpeaker    Type = "speaker"
	TypeBlind      Type = "blind"
	TypeUnknown    Type = "unknown"
)

// Status is the reachability of a device as last reported by the gateway.
type Status string

// Device statuses.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// Capability names used across the cache, commander and automation engine.
// These follow the gateway's capability vocabulary.
const (
	CapabilitySwitch         = "switch"
	CapabilitySwitchLevel    = "switchLevel"
	CapabilityColorControl   = "colorControl"
	CapabilityThermostatMode = "thermostatMode"
	CapabilityLock           = "lock"
	CapabilityMotionSensor   = "motionSensor"
	CapabilityContactSensor  = "contactSensor"
	CapabilityTemperature    = "temperatureMeasurement"
)

// Device is the cached representation of a gateway device.
//
// Attributes hold the last known value per capability attribute
// (e.g., "switch" -> "on", "level" -> 75). The cache is the only writer;
// reads receive deep copies.
type Device struct {
	// ID is the gateway device identifier.
	ID string `json:"id"`

	// Label is the human-readable name from the gateway.
	Label string `json:"label"`

	// Type categorises the device.
	Type Type `json:"type"`

	// Capabilities lists the gateway capabilities the device supports.
	Capabilities []string `json:"capabilities"`

	// Attributes is the last known attribute map.
	Attributes map[string]any `json:"attributes"`

	// Status is the last known reachability.
	Status Status `json:"status"`

	// RoomID references the room this device belongs to (optional).
	RoomID *string `json:"room_id,omitempty"`

	// UpdatedAt is when any attribute or status last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a cached gateway room.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChangeEvent describes a single attribute change on a device.
//
// Events are emitted only on actual change (old value differs from new),
// so subscribers see edges, not level reports.
type ChangeEvent struct {
	DeviceID  string    `json:"device_id"`
	Attribute string    `json:"attribute"`
	OldValue  any       `json:"old_value"`
	NewValue  any       `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

// DeepCopy creates a completely independent copy of the device.
// Used by the cache to prevent callers mutating shared state.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	devCopy := *d

	if d.Capabilities != nil {
		devCopy.Capabilities = make([]string, len(d.Capabilities))
		copy(devCopy.Capabilities, d.Capabilities)
	}

	if d.Attributes != nil {
		devCopy.Attributes = make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			devCopy.Attributes[k] = v
		}
	}

	if d.RoomID != nil {
		roomID := *d.RoomID
		devCopy.RoomID = &roomID
	}

	return &devCopy
}

// HasCapability reports whether the device supports a capability.
func (d *Device) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// IsOnline reports whether the device was reachable at last report.
func (d *Device) IsOnline() bool {
	return d.Status == StatusOnline
}

// parseType maps a gateway type string onto a known Type.
func parseType(s string) Type {
	switch Type(s) {
	case TypeLight, TypeSwitch, TypePlug, TypeThermostat, TypeLock,
		TypeSensor, TypeSpeaker, TypeBlind:
		return Type(s)
	default:
		return TypeUnknown
	}
}
