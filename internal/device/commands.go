package device

import (
	"context"
	"fmt"
	"sync"
)

// Commander issues capability commands to devices through the gateway.
//
// Commands to the same device are serialised via a per-device lock so a
// scene cannot interleave "on" and "setLevel" on one bulb; commands to
// different devices run concurrently. The commander never writes to the
// cache: confirmed state arrives later through the event feed or a
// refresh, so the cache only ever holds gateway-reported values.
type Commander struct {
	gw    Gateway
	cache *Cache

	locks  map[string]*sync.Mutex
	lockMu sync.Mutex

	logger Logger
}

// NewCommander creates a commander for the given gateway and cache.
func NewCommander(gw Gateway, cache *Cache) *Commander {
	return &Commander{
		gw:     gw,
		cache:  cache,
		locks:  make(map[string]*sync.Mutex),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the commander.
func (c *Commander) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SendCommand sends a single capability command to a device.
//
// The device must be cached and last reported online; commands to offline
// devices fail fast with ErrDeviceOffline rather than timing out at the
// gateway. Exactly one gateway command is issued per call.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Target device
//   - capability: Capability name (e.g., "switch")
//   - command: Command name (e.g., "on")
//   - args: Command arguments, may be nil
//
// Returns:
//   - error: ErrNotFound, ErrDeviceOffline, ErrCapabilityUnsupported,
//     or a gateway error (ErrCommandTimeout, ErrCommandFailed)
func (c *Commander) SendCommand(ctx context.Context, deviceID, capability, command string, args []any) error {
	d, err := c.cache.Get(deviceID)
	if err != nil {
		return err
	}
	if !d.IsOnline() {
		return fmt.Errorf("%w: %s", ErrDeviceOffline, deviceID)
	}
	if !d.HasCapability(capability) {
		return fmt.Errorf("%w: %s does not support %s", ErrCapabilityUnsupported, deviceID, capability)
	}

	lock := c.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	c.logger.Debug("sending command",
		"device_id", deviceID,
		"capability", capability,
		"command", command,
	)

	return c.gw.ControlDevice(ctx, deviceID, capability, command, args)
}

// TurnOn switches a device on.
func (c *Commander) TurnOn(ctx context.Context, deviceID string) error {
	return c.SendCommand(ctx, deviceID, CapabilitySwitch, "on", nil)
}

// TurnOff switches a device off.
func (c *Commander) TurnOff(ctx context.Context, deviceID string) error {
	return c.SendCommand(ctx, deviceID, CapabilitySwitch, "off", nil)
}

// SetLevel sets a dimmer level (0-100).
func (c *Commander) SetLevel(ctx context.Context, deviceID string, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("%w: level %d out of range 0-100", ErrInvalidCommand, level)
	}
	return c.SendCommand(ctx, deviceID, CapabilitySwitchLevel, "setLevel", []any{level})
}

// SetColor sets a colour by hue (0-100) and saturation (0-100).
func (c *Commander) SetColor(ctx context.Context, deviceID string, hue, saturation int) error {
	if hue < 0 || hue > 100 || saturation < 0 || saturation > 100 {
		return fmt.Errorf("%w: hue/saturation out of range 0-100", ErrInvalidCommand)
	}
	return c.SendCommand(ctx, deviceID, CapabilityColorControl, "setColor",
		[]any{map[string]any{"hue": hue, "saturation": saturation}})
}

// SetThermostatMode sets the thermostat operating mode.
func (c *Commander) SetThermostatMode(ctx context.Context, deviceID, mode string) error {
	switch mode {
	case "heat", "cool", "auto", "off":
	default:
		return fmt.Errorf("%w: unknown thermostat mode %q", ErrInvalidCommand, mode)
	}
	return c.SendCommand(ctx, deviceID, CapabilityThermostatMode, "setThermostatMode", []any{mode})
}

// LockDoor locks a lock device.
func (c *Commander) LockDoor(ctx context.Context, deviceID string) error {
	return c.SendCommand(ctx, deviceID, CapabilityLock, "lock", nil)
}

// UnlockDoor unlocks a lock device.
func (c *Commander) UnlockDoor(ctx context.Context, deviceID string) error {
	return c.SendCommand(ctx, deviceID, CapabilityLock, "unlock", nil)
}

// deviceLock returns the mutex for a device, creating it on first use.
func (c *Commander) deviceLock(deviceID string) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	lock, ok := c.locks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[deviceID] = lock
	}
	return lock
}
