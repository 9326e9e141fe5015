package zwave

import (
	"strconv"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

var bridgeBuilders = map[string]func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity{
	"ZWaveSwitch": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewSwitch(env, dev, o)
	},
	"ZWaveLight": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewLight(env, dev, o)
	},
	"ZWaveFan": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewFan(env, dev, o)
	},
	"ZWaveLock": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewLock(env, dev, o)
	},
	"ZWaveSensor": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewSensor(env, dev, o)
	},
	"ZWaveBinarySensor": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewBinarySensor(env, dev, o)
	},
}

// KnownBridgeType reports whether name is a valid Z-Wave bridge_type
// customization value.
func KnownBridgeType(name string) bool {
	_, ok := bridgeBuilders[name]
	return ok
}

// Generator builds the Home Assistant entities for Z-Wave devices.
type Generator struct {
	Env      entity.Env
	Settings entity.GeneratorSettings
}

// Generate returns every entity for dev, keyed by entity ID.
func (g *Generator) Generate(dev *indigo.Device) map[string]entity.Entity {
	out := map[string]entity.Entity{}
	if dev.Protocol != indigo.ProtocolZWave {
		return out
	}
	g.generateDefault(dev, out)
	g.generateBatterySensor(dev, out)
	return out
}

// Bridgeable reports whether dev yields at least one entity.
func (g *Generator) Bridgeable(dev *indigo.Device) bool {
	return dev.Protocol == indigo.ProtocolZWave && defaultBridgeType(dev) != ""
}

func defaultBridgeType(dev *indigo.Device) string {
	switch dev.Kind {
	case indigo.KindSensor:
		if dev.SensorValue == nil {
			return "ZWaveBinarySensor"
		}
		return "ZWaveSensor"
	case indigo.KindDimmer:
		return "ZWaveLight"
	case indigo.KindSpeedControl:
		return "ZWaveFan"
	case indigo.KindRelay:
		if dev.IsLockSubType {
			return "ZWaveLock"
		}
		return "ZWaveSwitch"
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
	out[strconv.FormatInt(dev.ID, 10)] = build(g.Env, dev, cust.Overrides())
}

func (g *Generator) generateBatterySensor(dev *indigo.Device, out map[string]entity.Entity) {
	if dev.BatteryLevel == nil {
		return
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	enabled := g.Settings.CreateBatterySensors
	if cust.HasFlag("enable_battery_sensor") {
		enabled = cust.Flag("enable_battery_sensor", false)
	}
	if !enabled {
		return
	}
	sensor := newBatteryStateSensor(g.Env, dev, cust.Overrides())
	out[sensor.ID()] = sensor
}
