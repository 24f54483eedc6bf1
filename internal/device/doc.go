// Package device provides the Device State Cache for HomePulse Core.
//
// The cache is the in-memory mirror of the external gateway's device
// registry and the single place the rest of the system reads device state
// from. The REST API, the condition evaluator and the device trigger all
// read here; nothing else round-trips to the gateway for state.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                       Device State Cache                          │
//	│                                                                   │
//	│  ┌───────────────┐    ┌────────────────┐    ┌────────────────┐   │
//	│  │     Cache     │    │   Commander    │    │   EventFeed    │   │
//	│  │  (cache.go)   │    │ (commands.go)  │    │  (events.go)   │   │
//	│  │               │    │                │    │                │   │
//	│  │ • Sync/Refresh│    │ • Typed cmds   │    │ • MQTT events  │   │
//	│  │ • Deep copies │    │ • Per-device   │    │ • ApplyEvent   │   │
//	│  │ • ChangeEvents│    │   locking      │    │                │   │
//	│  └───────┬───────┘    └───────┬────────┘    └───────┬────────┘   │
//	└──────────│────────────────────│─────────────────────│────────────┘
//	           │                    │                     │
//	           ▼                    ▼                     ▼
//	  automation engine      gateway client          MQTT broker
//	  + REST API             (commands out)          (events in)
//
// # State Flow
//
// State flows one way: the gateway is authoritative. SyncAll and Refresh
// pull; the event feed pushes. The commander sends commands but never
// writes the cache, so cached values are always gateway-reported, never
// optimistic.
//
// # Key Types
//
//   - Device: Cached device with label, capabilities, attributes, status
//   - ChangeEvent: One attribute edge (old value differs from new)
//   - Cache: Thread-safe mirror with Subscribe for change notifications
//   - Commander: Typed command helpers with per-device serialisation
//   - EventFeed: MQTT subscription feeding ApplyEvent
//
// # Usage
//
//	cache := device.NewCache(gatewayClient)
//	if err := cache.SyncAll(ctx); err != nil {
//	    // degraded: gateway unreachable, cache stays empty
//	}
//
//	cache.Subscribe(func(ev device.ChangeEvent) {
//	    // edge-triggered automation evaluation
//	})
//
//	cmd := device.NewCommander(gatewayClient, cache)
//	err := cmd.SetLevel(ctx, "light-bedroom", 40)
package device
