// Package mqtt provides MQTT client connectivity for HomePulse Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// HomePulse uses MQTT as the push channel from the device-control gateway
// bridge: the bridge publishes device attribute changes, Core subscribes
// and applies them to the in-memory device cache. The broker decouples
// Core from the gateway's event delivery.
//
//	Gateway Bridge → MQTT Broker → HomePulse Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device attribute events
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish an automation fired event
//	topic := mqtt.Topics{}.CoreAutomationFired("wake-up-lights")
//	client.Publish(topic, []byte(`{"fired":true}`), 1, false)
package mqtt
