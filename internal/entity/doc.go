// Package entity implements the Home Assistant MQTT Discovery entity
// model the bridge publishes for Indigo devices and variables.
//
// Entities are built by composition rather than inheritance. The
// capability layers stack as embedded structs:
//
//	Base              discovery config publish/retract
//	Available         + per-entity availability topic (online/offline)
//	StatefulDevice    + state, JSON attributes, HA device block
//	CommandableDevice + command topic subscription
//
// Concrete kinds (Switch, Light, Sensor, BinarySensor, Cover, Fan,
// Lock, Trigger) compose the layers and contribute their own topics
// and payloads. Protocol packages (insteon, zwave, variable, virtual)
// specialise kinds through the exported hook fields instead of
// subclassing.
//
// Every config value an entity publishes can be overridden through the
// customization file; string values support {d[field]} references
// resolved against the entity's field map (discovery_prefix,
// hass_type, mqtt_name, id, address, name).
package entity
