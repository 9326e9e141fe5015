// Package influxdb provides InfluxDB connectivity for the bridge.
//
// It wraps the official influxdb-client-go v2 library with bridge-specific
// patterns for connection management, state recording, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Entity state changes (on/off, brightness, sensor values)
//   - Forwarded protocol events (button presses, low-battery)
//
// # Usage
//
//	cfg := config.InfluxConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hassbridge",
//	    Bucket: "states",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteEntityState("porch_temp", "sensor", "21.5")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps a chatty Insteon network from hammering the sink.
package influxdb
