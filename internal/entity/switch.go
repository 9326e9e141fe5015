package entity

import "github.com/nerrad567/indigo-hass-bridge/internal/indigo"

// Switch publishes a relay device as a Home Assistant switch.
type Switch struct {
	CommandableDevice
}

// NewSwitch builds a switch entity for dev.
func NewSwitch(env Env, dev *indigo.Device, overrides Overrides) *Switch {
	return NewSwitchForType(env, "switch", dev, overrides)
}

// NewSwitchForType builds a switch-shaped entity published under a
// different Home Assistant component. Keypad button LEDs use this to
// appear as lights without brightness.
func NewSwitchForType(env Env, hassType string, dev *indigo.Device, overrides Overrides) *Switch {
	return &Switch{
		CommandableDevice: newCommandableDevice(env, hassType, dev, overrides),
	}
}

func (s *Switch) Config() map[string]any {
	cfg := s.baseConfig()
	s.availabilityConfig(cfg)
	s.deviceConfig(cfg)
	s.commandableConfig(cfg)
	return s.applyConfigOverrides(cfg)
}

func (s *Switch) Register() error {
	return s.registerCommandable(s.Config())
}
