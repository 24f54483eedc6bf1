// Package gateway provides the HTTP client for the external device-control
// gateway.
//
// The gateway is the cloud service that owns the device registry and
// executes capability commands against physical devices. Core never talks
// to devices directly; every read of the remote registry and every command
// goes through this client.
//
// # Degraded Mode
//
// An unconfigured gateway (empty token) is a supported state, not a fatal
// one. Every call fails fast with ErrNotConfigured so the rest of the
// system keeps running and the API can report gateway_connected=false.
//
// # Error Handling
//
// Commands are fire-and-check: a single HTTP round trip with a bounded
// timeout and no retry. Retrying device commands risks double actuation
// (a retried "toggle" or "unlock" is worse than a failed one), so failures
// surface immediately as ErrCommandFailed or ErrCommandTimeout and the
// caller decides what to do.
//
// # Usage
//
//	client := gateway.New(cfg.Gateway)
//
//	devices, err := client.Devices(ctx)
//	if errors.Is(err, gateway.ErrNotConfigured) {
//	    // run degraded
//	}
//
//	err = client.ControlDevice(ctx, "light-bedroom", "switchLevel", "setLevel", []any{40})
package gateway
