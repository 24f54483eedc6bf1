package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/homepulse/homepulse-core/internal/infrastructure/config"
)

// HTTP constants.
const (
	// maxResponseSize caps response bodies to prevent resource exhaustion.
	maxResponseSize = 4 << 20 // 4MB

	// defaultCommandTimeout is used when the config value is missing.
	defaultCommandTimeout = 10 * time.Second
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any)  {}

// Client is the HTTP client for the device-control gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	token      string
	locationID string
	timeout    time.Duration
	httpClient *http.Client
	logger     Logger
}

// New creates a gateway client from configuration.
//
// An empty token is not an error: the client is created in an
// unconfigured state and every call returns ErrNotConfigured. This keeps
// startup non-fatal when the gateway has not been linked yet.
//
// Parameters:
//   - cfg: Gateway configuration from config.yaml
//
// Returns:
//   - *Client: Client ready for use (possibly unconfigured)
func New(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		locationID: cfg.LocationID,
		timeout:    timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: noopLogger{},
	}
}

// SetLogger sets a logger for request diagnostics.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// IsConfigured reports whether a token and URL are present.
func (c *Client) IsConfigured() bool {
	return c.token != "" && c.baseURL != ""
}

// HealthCheck verifies the gateway is reachable and the token is accepted.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/ping", nil, &out); err != nil {
		return fmt.Errorf("gateway health check: %w", err)
	}
	return nil
}

// Devices fetches the full device registry from the gateway.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []Device: All devices known to the gateway for this location
//   - error: ErrNotConfigured, ErrRequestFailed or a transport error
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var out struct {
		Items []Device `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Device fetches a single device record.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//
// Returns:
//   - *Device: The device record
//   - error: ErrDeviceNotFound if the gateway does not know the device
func (c *Client) Device(ctx context.Context, deviceID string) (*Device, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var out Device
	if err := c.doJSON(ctx, http.MethodGet, "/devices/"+deviceID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceStatus fetches the live attribute set of a device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//
// Returns:
//   - *DeviceStatus: Online flag and current attributes
//   - error: ErrDeviceNotFound if the gateway does not know the device
func (c *Client) DeviceStatus(ctx context.Context, deviceID string) (*DeviceStatus, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var out DeviceStatus
	if err := c.doJSON(ctx, http.MethodGet, "/devices/"+deviceID+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rooms fetches the room list from the gateway.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []Room: All rooms for this location
//   - error: ErrNotConfigured, ErrRequestFailed or a transport error
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var out struct {
		Items []Room `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ControlDevice sends a single capability command to a device.
//
// The call is bounded by the configured per-command timeout and is never
// retried. A timeout maps to ErrCommandTimeout, a rejected command to
// ErrCommandFailed.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//   - capability: Capability name (e.g., "switch", "switchLevel")
//   - command: Command name (e.g., "on", "setLevel")
//   - args: Command arguments, may be nil
//
// Returns:
//   - error: nil if the gateway accepted and executed the command
func (c *Client) ControlDevice(ctx context.Context, deviceID, capability, command string, args []any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := struct {
		Commands []Command `json:"commands"`
	}{
		Commands: []Command{{
			Capability: capability,
			Command:    command,
			Arguments:  args,
		}},
	}

	err := c.doJSON(ctx, http.MethodPost, "/devices/"+deviceID+"/commands", body, nil)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s on %s", ErrCommandTimeout, capability, command, deviceID)
		}
		if errors.Is(err, ErrDeviceNotFound) {
			return err
		}
		return fmt.Errorf("%w: %s %s on %s: %w", ErrCommandFailed, capability, command, deviceID, err)
	}

	c.logger.Debug("gateway command sent",
		"device_id", deviceID,
		"capability", capability,
		"command", command,
	)
	return nil
}

// doJSON performs an HTTP round trip with bearer auth and JSON bodies.
//
// A nil out skips response decoding. Non-2xx statuses map to sentinel
// errors; the response body is included for diagnostics where available.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.locationID != "" {
		req.Header.Set("X-Location-ID", c.locationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrDeviceNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Warn("gateway request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(string(data), 200))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
		}
	}
	return nil
}

// isTimeout reports whether an error represents a deadline or timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncate shortens a string for log/error inclusion.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
