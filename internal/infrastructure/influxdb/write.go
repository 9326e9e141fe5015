package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEntityState records a state payload published for a bridged entity.
//
// The write is non-blocking; data is batched and sent asynchronously.
// When the payload parses as a number (sensor values, brightness,
// battery percent) it is additionally recorded as a float field so it
// can be graphed directly.
//
// Parameters:
//   - entityID: Bridge entity identifier (e.g., "office_lamp")
//   - hassType: Home Assistant component type (e.g., "light", "sensor")
//   - payload: The raw state payload as published to MQTT
//
// Example:
//
//	client.WriteEntityState("porch_temp", "sensor", "21.5")
//	client.WriteEntityState("office_lamp", "light", "ON")
func (c *Client) WriteEntityState(entityID, hassType, payload string) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"payload": payload,
	}
	if v, err := strconv.ParseFloat(payload, 64); err == nil {
		fields["value"] = v
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"entity_id": entityID,
			"hass_type": hassType,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteEvent records a protocol event forwarded to Home Assistant,
// such as an Insteon button press or a low-battery notification.
//
// Parameters:
//   - event: The full event name (e.g., "indigo_hassbridge_on")
//   - senderID: The originating entity identifier
func (c *Client) WriteEvent(event, senderID string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_event",
		map[string]string{
			"event":     event,
			"sender_id": senderID,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed history).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
