package gateway

// Device is a device record as the gateway reports it.
//
// This is the wire shape; the device package converts it into its own
// cache representation and owns all domain semantics.
type Device struct {
	DeviceID     string   `json:"device_id"`
	Label        string   `json:"label"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
	RoomID       string   `json:"room_id,omitempty"`
}

// DeviceStatus is the current attribute set of a device.
type DeviceStatus struct {
	Online     bool           `json:"online"`
	Attributes map[string]any `json:"attributes"`
}

// Room is a room record as the gateway reports it.
type Room struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// Command is a single capability command sent to a device.
type Command struct {
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}
