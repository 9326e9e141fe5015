package entity

import "github.com/nerrad567/indigo-hass-bridge/internal/indigo"

// BinarySensor publishes an on/off sensor device as a Home Assistant
// binary sensor.
type BinarySensor struct {
	StatefulDevice

	// DeviceClassDefault sets the device class when no customization
	// overrides it. Protocol packages set it from the hardware type
	// (motion, moisture, opening).
	DeviceClassDefault string
}

// NewBinarySensor builds a binary sensor entity for dev.
func NewBinarySensor(env Env, dev *indigo.Device, overrides Overrides) *BinarySensor {
	return &BinarySensor{
		StatefulDevice: newStatefulDevice(env, "binary_sensor", dev, overrides),
	}
}

// DeviceClass returns the binary sensor device class, or "" for none.
func (b *BinarySensor) DeviceClass() string {
	return b.Option("device_class", b.DeviceClassDefault)
}

func (b *BinarySensor) Config() map[string]any {
	cfg := b.baseConfig()
	b.availabilityConfig(cfg)
	b.deviceConfig(cfg)
	if class := b.DeviceClass(); class != "" {
		cfg["device_class"] = class
	}
	if delay := b.IntOption("off_delay", 0); delay > 0 {
		cfg["off_delay"] = delay
	}
	if tmpl := b.Option("value_template", ""); tmpl != "" {
		cfg["value_template"] = tmpl
	}
	cfg["force_update"] = b.BoolOption("force_update", false)
	return b.applyConfigOverrides(cfg)
}

func (b *BinarySensor) Register() error {
	return b.registerDevice(b.Config())
}
