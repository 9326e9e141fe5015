// Package insteon maps Insteon devices onto Home Assistant entities
// and translates Insteon group broadcasts into bridge events.
//
// Beyond the one-entity-per-device defaults, KeypadLinc and RemoteLinc
// hardware fans out into composite entities: one light per keypad
// button LED, device_automation triggers per button action, battery
// staleness sensors for battery powered sensors, and synthetic lights
// driving the LED backlight level over raw extended commands.
package insteon
