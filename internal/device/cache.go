package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/homepulse/homepulse-core/internal/gateway"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
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

// Gateway is the subset of the gateway client the device package needs.
type Gateway interface {
	Devices(ctx context.Context) ([]gateway.Device, error)
	DeviceStatus(ctx context.Context, deviceID string) (*gateway.DeviceStatus, error)
	Rooms(ctx context.Context) ([]gateway.Room, error)
	ControlDevice(ctx context.Context, deviceID, capability, command string, args []any) error
}

// Subscriber receives attribute change events from the cache.
//
// Subscribers are invoked synchronously on the goroutine that applied the
// change; they must return quickly and never call back into the cache's
// write path.
type Subscriber func(ChangeEvent)

// Cache is the in-memory mirror of the gateway's device registry.
//
// It is the single source of truth the rest of the system reads device
// state from: the API, the condition evaluator and the device trigger all
// read here rather than round-tripping to the gateway. State flows in via
// SyncAll/Refresh (pull) and ApplyEvent (push from the MQTT event feed).
//
// Devices are never locally deleted. A device missing from a later sync
// is kept and marked offline, so automations referencing it degrade
// rather than dangle.
//
// All public methods are thread-safe.
type Cache struct {
	gw Gateway

	devices map[string]*Device
	rooms   map[string]Room
	mu      sync.RWMutex

	subscribers []Subscriber
	subMu       sync.RWMutex

	logger Logger
}

// NewCache creates a device cache backed by the given gateway client.
func NewCache(gw Gateway) *Cache {
	return &Cache{
		gw:      gw,
		devices: make(map[string]*Device),
		rooms:   make(map[string]Room),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Subscribe registers a callback for attribute change events.
//
// Events are emitted only when a value actually changes. There is no
// unsubscribe; subscriptions live for the process lifetime.
func (c *Cache) Subscribe(fn Subscriber) {
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.subMu.Unlock()
}

// SyncAll mirrors the gateway registry into the cache.
//
// New devices are added, known devices have their label, type,
// capabilities and room updated, and devices the gateway no longer
// reports are marked offline. Attributes of known devices are preserved;
// new devices start with attributes from a status fetch.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If the registry or room list could not be fetched
func (c *Cache) SyncAll(ctx context.Context) error {
	remote, err := c.gw.Devices(ctx)
	if err != nil {
		return fmt.Errorf("fetching device registry: %w", err)
	}

	rooms, err := c.gw.Rooms(ctx)
	if err != nil {
		return fmt.Errorf("fetching rooms: %w", err)
	}

	// Fetch status for devices we have not seen before, outside the lock.
	statuses := make(map[string]*gateway.DeviceStatus)
	for _, rd := range remote {
		c.mu.RLock()
		_, known := c.devices[rd.DeviceID]
		c.mu.RUnlock()
		if known {
			continue
		}
		status, err := c.gw.DeviceStatus(ctx, rd.DeviceID)
		if err != nil {
			c.logger.Warn("initial status fetch failed", "device_id", rd.DeviceID, "error", err)
			continue
		}
		statuses[rd.DeviceID] = status
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(remote))

	c.mu.Lock()

	c.rooms = make(map[string]Room, len(rooms))
	for _, r := range rooms {
		c.rooms[r.RoomID] = Room{ID: r.RoomID, Name: r.Name}
	}

	for _, rd := range remote {
		seen[rd.DeviceID] = true

		existing, ok := c.devices[rd.DeviceID]
		if ok {
			existing.Label = rd.Label
			existing.Type = parseType(rd.Type)
			existing.Capabilities = append([]string(nil), rd.Capabilities...)
			existing.RoomID = optionalString(rd.RoomID)
			continue
		}

		d := &Device{
			ID:           rd.DeviceID,
			Label:        rd.Label,
			Type:         parseType(rd.Type),
			Capabilities: append([]string(nil), rd.Capabilities...),
			Attributes:   make(map[string]any),
			Status:       StatusOffline,
			RoomID:       optionalString(rd.RoomID),
			UpdatedAt:    now,
		}
		if status, ok := statuses[rd.DeviceID]; ok {
			d.Status = statusFromOnline(status.Online)
			for k, v := range status.Attributes {
				d.Attributes[k] = v
			}
		}
		c.devices[rd.DeviceID] = d
	}

	// Devices the gateway stopped reporting stay cached but go offline.
	for id, d := range c.devices {
		if !seen[id] && d.Status != StatusOffline {
			d.Status = StatusOffline
			d.UpdatedAt = now
		}
	}

	count := len(c.devices)
	c.mu.Unlock()

	c.logger.Info("device cache synced", "devices", count, "rooms", len(rooms))
	return nil
}

// Refresh round-trips a single device's status through the gateway and
// overwrites its cached attributes with the result.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Device to refresh
//
// Returns:
//   - *Device: Deep copy of the refreshed device
//   - error: ErrNotFound if the device is not cached, or a gateway error
func (c *Cache) Refresh(ctx context.Context, deviceID string) (*Device, error) {
	c.mu.RLock()
	_, ok := c.devices[deviceID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	status, err := c.gw.DeviceStatus(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("refreshing %s: %w", deviceID, err)
	}

	events := c.applyStatus(deviceID, status.Online, status.Attributes)
	c.notify(events)

	return c.Get(deviceID)
}

// ApplyEvent applies a gateway-pushed attribute update to the cache.
//
// Used by the MQTT event feed. Unknown devices are ignored with a debug
// log; the next SyncAll picks them up.
//
// Parameters:
//   - deviceID: Device the event is for
//   - online: New reachability, nil to leave unchanged
//   - attrs: Attribute values to merge, may be nil
func (c *Cache) ApplyEvent(deviceID string, online *bool, attrs map[string]any) {
	c.mu.RLock()
	_, ok := c.devices[deviceID]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug("event for unknown device ignored", "device_id", deviceID)
		return
	}

	var events []ChangeEvent
	if online != nil {
		events = c.applyStatus(deviceID, *online, attrs)
	} else {
		events = c.applyAttributes(deviceID, attrs)
	}
	c.notify(events)
}

// Get retrieves a device by ID.
// The returned device is a deep copy; callers can safely modify it.
func (c *Cache) Get(deviceID string) (*Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return d.DeepCopy(), nil
}

// List retrieves all cached devices.
// The returned devices are deep copies; callers can safely modify them.
func (c *Cache) List() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	devices := make([]Device, 0, len(c.devices))
	for _, d := range c.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices
}

// ListByRoom retrieves all cached devices in a specific room.
func (c *Cache) ListByRoom(roomID string) []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var devices []Device
	for _, d := range c.devices {
		if d.RoomID != nil && *d.RoomID == roomID {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// Rooms retrieves all cached rooms.
func (c *Cache) Rooms() []Room {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Attribute reads one attribute of one device. The second return is
// false when the device or attribute is unknown. This is the condition
// evaluator's read path; it avoids a full deep copy per check.
func (c *Cache) Attribute(deviceID, attribute string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.devices[deviceID]
	if !ok {
		return nil, false
	}
	v, ok := d.Attributes[attribute]
	return v, ok
}

// Snapshot returns the current attribute state of every device keyed by
// ID. Used by the condition evaluator, which needs a consistent read of
// multiple devices at once.
func (c *Cache) Snapshot() map[string]Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[string]Device, len(c.devices))
	for id, d := range c.devices {
		snap[id] = *d.DeepCopy()
	}
	return snap
}

// ─── Internal State Application ───

// applyStatus overwrites a device's reachability and merges attributes,
// returning the change events produced.
func (c *Cache) applyStatus(deviceID string, online bool, attrs map[string]any) []ChangeEvent {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[deviceID]
	if !ok {
		return nil
	}

	var events []ChangeEvent

	newStatus := statusFromOnline(online)
	if d.Status != newStatus {
		d.Status = newStatus
		d.UpdatedAt = now
	}

	events = append(events, mergeAttributes(d, attrs, now)...)
	return events
}

// applyAttributes merges attributes without touching reachability.
func (c *Cache) applyAttributes(deviceID string, attrs map[string]any) []ChangeEvent {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[deviceID]
	if !ok {
		return nil
	}
	return mergeAttributes(d, attrs, now)
}

// mergeAttributes writes attrs into the device, emitting an event per
// value that actually changed. Caller must hold the write lock.
func mergeAttributes(d *Device, attrs map[string]any, now time.Time) []ChangeEvent {
	var events []ChangeEvent
	for k, v := range attrs {
		old, had := d.Attributes[k]
		if had && attributeEqual(old, v) {
			continue
		}
		d.Attributes[k] = v
		d.UpdatedAt = now
		events = append(events, ChangeEvent{
			DeviceID:  d.ID,
			Attribute: k,
			OldValue:  old,
			NewValue:  v,
			Timestamp: now,
		})
	}
	return events
}

// attributeEqual compares attribute values. Numeric values are compared
// as float64 because JSON decoding produces float64 for all numbers but
// internal writers may use ints.
func attributeEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// notify delivers events to all subscribers outside the cache lock.
func (c *Cache) notify(events []ChangeEvent) {
	if len(events) == 0 {
		return
	}

	c.subMu.RLock()
	subs := make([]Subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.RUnlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// statusFromOnline converts the gateway's boolean into a Status.
func statusFromOnline(online bool) Status {
	if online {
		return StatusOnline
	}
	return StatusOffline
}

// optionalString converts an empty string to nil.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
