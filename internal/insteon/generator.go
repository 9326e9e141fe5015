package insteon

import (
	"strconv"
	"strings"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// Keypad button layouts. Six-button keypads expose the middle rockers
// as A-D on scenes 3-6; eight-button keypads expose B-H on 2-8.
var (
	keypad8ButtonMap = map[int]string{2: "B", 3: "C", 4: "D", 5: "E", 6: "F", 7: "G", 8: "H"}
	keypad6ButtonMap = map[int]string{3: "A", 4: "B", 5: "C", 6: "D"}
)

// keypadModels maps supported KeypadLinc models to whether the
// hardware is a relay (true) or dimmer (false).
var keypadModels = map[string]bool{
	"KeypadLinc Dimmer (2334)":     false,
	"KeypadLinc Dimmer (2334-232)": false,
	"KeypadLinc Relay":             true,
}

// RemoteLinc button scenes come interleaved from the hardware.
var (
	remote8ButtonMap = map[int]string{1: "B", 2: "A", 3: "D", 4: "C", 5: "F", 6: "E", 7: "H", 8: "G"}
	remote4ButtonMap = map[int]string{1: "A", 2: "B", 3: "C", 4: "D"}
	remote1ButtonMap = map[int]string{1: ""}
)

var remoteModels = map[string]map[int]string{
	"RemoteLinc 2 4-Scene": remote4ButtonMap,
	"RemoteLinc 2 8-Scene": remote8ButtonMap,
	"RemoteLinc 2 Switch":  remote1ButtonMap,
}

// batterySensorModels are the battery powered sensors that get a
// staleness sensor alongside their primary entity.
var batterySensorModels = map[string]bool{
	"Leak Sensor":          true,
	"Open/Close Sensor":    true,
	"Door Sensor":          true,
	"Motion Sensor (2844)": true,
}

// bridgeBuilders maps customization bridge_type names to entity
// constructors.
var bridgeBuilders = map[string]func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity{
	"InsteonSwitch": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return newSwitch(g.Env, dev, o, g.Settings.EventPrefix)
	},
	"InsteonLight": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return newLight(g.Env, dev, o, g.Settings.EventPrefix)
	},
	"InsteonLock": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return newLock(g.Env, dev, o, g.Settings.EventPrefix)
	},
	"InsteonFan": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewFan(g.Env, dev, o)
	},
	"InsteonCover": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewCover(g.Env, dev, o)
	},
	"InsteonSensor": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewSensor(g.Env, dev, o)
	},
	"InsteonBinarySensor": func(g *Generator, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewBinarySensor(g.Env, dev, o)
	},
}

// KnownBridgeType reports whether name is a valid Insteon bridge_type
// customization value.
func KnownBridgeType(name string) bool {
	_, ok := bridgeBuilders[name]
	return ok
}

// Generator builds the Home Assistant entities for Insteon devices.
type Generator struct {
	Env       entity.Env
	Commander Commander
	Settings  entity.GeneratorSettings
}

// Generate returns every entity for dev, keyed by entity ID.
func (g *Generator) Generate(dev *indigo.Device) map[string]entity.Entity {
	out := map[string]entity.Entity{}
	if dev.Protocol != indigo.ProtocolInsteon {
		return out
	}
	g.generateDefault(dev, out)
	g.generateIO(dev, out)
	g.generateKeypad(dev, out)
	g.generateRemote(dev, out)
	g.generateBatterySensor(dev, out)
	g.generateBacklight(dev, out)
	return out
}

// Bridgeable reports whether dev yields at least one primary entity.
func (g *Generator) Bridgeable(dev *indigo.Device) bool {
	if dev.Protocol != indigo.ProtocolInsteon {
		return false
	}
	if defaultBridgeType(dev) != "" {
		return true
	}
	if dev.Kind == indigo.KindMultiIO {
		return true
	}
	_, isRemote := remoteModels[dev.Model]
	return isRemote
}

func defaultBridgeType(dev *indigo.Device) string {
	switch dev.Kind {
	case indigo.KindSensor:
		if dev.SensorValue == nil {
			return "InsteonBinarySensor"
		}
		return "InsteonSensor"
	case indigo.KindDimmer:
		return "InsteonLight"
	case indigo.KindSpeedControl:
		return "InsteonFan"
	case indigo.KindRelay:
		if dev.IsLockSubType {
			return "InsteonLock"
		}
		return "InsteonSwitch"
	}
	return ""
}

func (g *Generator) generateDefault(dev *indigo.Device, out map[string]entity.Entity) {
	cust := g.Settings.Customizations.Device(dev.Name)
	bridgeType := defaultBridgeType(dev)
	if bt := cust.BridgeType(); bt != "" {
		bridgeType = bt
	}
	build, ok := bridgeBuilders[bridgeType]
	if !ok {
		return
	}
	guessDeviceClass(dev, &cust)
	out[strconv.FormatInt(dev.ID, 10)] = build(g, dev, cust.Overrides())
}

func (g *Generator) generateIO(dev *indigo.Device, out map[string]entity.Entity) {
	if dev.Kind != indigo.KindMultiIO {
		return
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	bridgeType := "InsteonCover"
	if bt := cust.BridgeType(); bt != "" {
		bridgeType = bt
	}
	build, ok := bridgeBuilders[bridgeType]
	if !ok {
		return
	}
	out[strconv.FormatInt(dev.ID, 10)] = build(g, dev, cust.Overrides())
}

// guessDeviceClass fills in a binary sensor device class from the
// hardware model when the customization file does not pick one.
func guessDeviceClass(dev *indigo.Device, cust *entity.Customization) {
	lower := strings.ToLower(dev.Name)
	switch {
	case dev.Model == "Leak Sensor":
		cust.SetConfigVarDefault("device_class", "moisture")
	case dev.Model == "Door Sensor":
		cust.SetConfigVarDefault("device_class", "door")
	case dev.Model == "Open/Close Sensor":
		if strings.Contains(lower, "door") {
			cust.SetConfigVarDefault("device_class", "door")
		} else if strings.Contains(lower, "window") {
			cust.SetConfigVarDefault("device_class", "window")
		}
	case dev.Model == "Motion Sensor (2844)" || strings.Contains(lower, "motion"):
		cust.SetConfigVarDefault("device_class", "motion")
	}
}

func (g *Generator) generateKeypad(dev *indigo.Device, out map[string]entity.Entity) {
	relay, ok := keypadModels[dev.Model]
	if !ok {
		return
	}
	buttons := keypad8ButtonMap
	if dev.ButtonGroupCount == 6 {
		buttons = keypad6ButtonMap
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	for button, label := range buttons {
		light := newKeypadButtonLight(g.Env, g.Commander, dev, cust.Overrides(),
			g.Settings.EventPrefix, button, label, relay)
		out[light.ID()] = light

		for _, activityType := range Events {
			tracker := newActivityTracker(g.Env, dev, cust.Overrides(),
				button, label, activityType)
			out[tracker.ID()] = tracker
		}
	}
}

func (g *Generator) generateRemote(dev *indigo.Device, out map[string]entity.Entity) {
	buttons, ok := remoteModels[dev.Model]
	if !ok {
		return
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	for button, label := range buttons {
		remote := newRemote(g.Env, dev, cust.Overrides(),
			g.Settings.EventPrefix, button, label)
		out[remote.ID()] = remote

		for _, activityType := range Events {
			tracker := newActivityTracker(g.Env, dev, cust.Overrides(),
				button, label, activityType)
			out[tracker.ID()] = tracker
		}
	}
}

func (g *Generator) generateBatterySensor(dev *indigo.Device, out map[string]entity.Entity) {
	if !batterySensorModels[dev.Model] {
		return
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	if !featureEnabled(cust, "enable_battery_sensor", g.Settings.CreateBatterySensors) {
		return
	}
	sensor := newBatteryStateSensor(g.Env, dev, cust.Overrides(),
		g.Settings.InsteonNoCommMinutes)
	out[sensor.ID()] = sensor
}

func (g *Generator) generateBacklight(dev *indigo.Device, out map[string]entity.Entity) {
	cust := g.Settings.Customizations.Device(dev.Name)
	if !featureEnabled(cust, "enable_led_backlight_light", g.Settings.CreateLEDBacklights) {
		return
	}
	if !backlightCapable(dev) {
		return
	}
	light := newLEDBacklight(g.Env, g.Commander, dev, cust.Overrides(),
		g.Settings.EventPrefix)
	out[light.ID()] = light
}

// featureEnabled resolves an opt-in feature: a per-device flag wins,
// otherwise the global setting applies.
func featureEnabled(cust entity.Customization, key string, global bool) bool {
	if cust.HasFlag(key) {
		return cust.Flag(key, false)
	}
	return global
}

// backlightCapable reports whether the hardware has an addressable LED
// backlight. SwitchLinc needs firmware 0x38 or newer.
func backlightCapable(dev *indigo.Device) bool {
	switch {
	case strings.Contains(dev.Model, "KeypadLinc"):
		return true
	case strings.Contains(dev.Model, "SwitchLinc"):
		return dev.FirmwareVersion >= 0x38
	case strings.Contains(dev.Model, "OutletLinc"):
		return true
	}
	return false
}
