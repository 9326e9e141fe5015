// Package hass is a minimal Home Assistant REST API client. The bridge
// uses it for the two calls MQTT discovery cannot cover: firing bus
// events for protocol traffic and reading back the entity registry so
// bridge entities learn their Home Assistant names.
package hass
