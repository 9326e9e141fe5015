package entity

import "fmt"

// Topics builds the MQTT topic tree for a discovery prefix. All entity
// topics hang off the per-entity root:
//
//	{prefix}/{hass_type}/{mqtt_name}
type Topics struct {
	Prefix string
}

// Root returns the base topic for an entity.
func (t Topics) Root(hassType, mqttName string) string {
	return fmt.Sprintf("%s/%s/%s", t.Prefix, hassType, mqttName)
}

// Config returns the discovery config topic.
func (t Topics) Config(hassType, mqttName string) string {
	return t.Root(hassType, mqttName) + "/config"
}

// Availability returns the per-entity availability topic.
func (t Topics) Availability(hassType, mqttName string) string {
	return t.Root(hassType, mqttName) + "/status"
}

// State returns the default state topic.
func (t Topics) State(hassType, mqttName string) string {
	return t.Root(hassType, mqttName) + "/state"
}

// Command returns the default command topic.
func (t Topics) Command(hassType, mqttName string) string {
	return t.Root(hassType, mqttName) + "/set"
}

// Attributes returns the JSON attributes topic.
func (t Topics) Attributes(hassType, mqttName string) string {
	return t.Root(hassType, mqttName) + "/attributes"
}
