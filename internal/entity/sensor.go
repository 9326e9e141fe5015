package entity

import (
	"strconv"
	"strings"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// Sensor publishes a sensor device's numeric value as a Home Assistant
// sensor. Device class and unit are guessed from the Indigo sub-model
// when not customized.
type Sensor struct {
	StatefulDevice

	// DeviceClassDefault and UnitDefault replace the sub-model guess
	// when set, before customizations apply. The Z-Wave battery sensor
	// uses them.
	DeviceClassDefault string
	UnitDefault        string

	// ValueSource returns the state payload for dev.
	ValueSource func(dev *indigo.Device) string
}

// NewSensor builds a sensor entity for dev.
func NewSensor(env Env, dev *indigo.Device, overrides Overrides) *Sensor {
	s := &Sensor{
		StatefulDevice: newStatefulDevice(env, "sensor", dev, overrides),
	}
	s.ValueSource = sensorValuePayload
	s.StateSender = func(dev *indigo.Device) {
		s.PublishState(s.ValueSource(dev))
	}
	return s
}

func sensorValuePayload(dev *indigo.Device) string {
	if dev.SensorValue == nil {
		return ""
	}
	return strconv.FormatFloat(*dev.SensorValue, 'f', -1, 64)
}

// DeviceClass returns the sensor device class, guessed from the
// sub-model unless customized.
func (s *Sensor) DeviceClass() string {
	def := s.DeviceClassDefault
	if def == "" {
		switch s.Device().SubModel {
		case "Humidity":
			def = "humidity"
		case "Luminance":
			def = "illuminance"
		case "Temperature":
			def = "temperature"
		}
	}
	return s.Option("device_class", def)
}

// UnitOfMeasurement returns the unit, guessed from the sub-model
// unless customized. Temperature units come from the formatted sensor
// value so Fahrenheit and Celsius controllers both report correctly.
func (s *Sensor) UnitOfMeasurement() string {
	def := s.UnitDefault
	if def == "" {
		dev := s.Device()
		switch dev.SubModel {
		case "Humidity":
			def = "%"
		case "Luminance":
			def = "lx"
		case "Temperature":
			ui := dev.StateString("sensorValue.ui")
			if parts := strings.Split(ui, " "); len(parts) > 1 {
				def = parts[len(parts)-1]
			}
		}
	}
	return s.Option("unit_of_measurement", def)
}

func (s *Sensor) Config() map[string]any {
	cfg := s.baseConfig()
	s.availabilityConfig(cfg)
	s.deviceConfig(cfg)
	delete(cfg, "payload_on")
	delete(cfg, "payload_off")
	cfg["expire_after"] = s.IntOption("expire_after", 0)
	cfg["force_update"] = s.BoolOption("force_update", false)
	if unit := s.UnitOfMeasurement(); unit != "" {
		cfg["unit_of_measurement"] = unit
	}
	if class := s.DeviceClass(); class != "" {
		cfg["device_class"] = class
	}
	return s.applyConfigOverrides(cfg)
}

func (s *Sensor) Register() error {
	return s.registerDevice(s.Config())
}
