// Package mqtt provides MQTT client connectivity for the bridge.
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
// The bridge sits between the Indigo device registry and Home Assistant,
// with MQTT carrying discovery configs, state, and commands in both
// directions:
//
//	Indigo registry ↔ Bridge ↔ MQTT Broker ↔ Home Assistant
//
// The bridge's own availability is published retained to the configured
// status topic. Every discovery config lists that topic in its
// availability block, so a dead bridge marks every entity unavailable.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to a command topic
//	err = client.Subscribe("homeassistant/light/kitchen/set", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a retained discovery config
//	client.Publish("homeassistant/light/kitchen/config", configJSON, 0, true)
package mqtt
