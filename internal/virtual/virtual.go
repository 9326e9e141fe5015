// Package virtual generates entities for virtual devices from the
// device collection plugin. A device group with members is a switch; a
// group with no members only reflects state it is given, so it becomes
// a binary sensor.
package virtual

import (
	"strconv"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

var bridgeBuilders = map[string]func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity{
	"VirtualSwitch": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewSwitch(env, dev, o)
	},
	"VirtualBinarySensor": func(env entity.Env, dev *indigo.Device, o entity.Overrides) entity.Entity {
		return entity.NewBinarySensor(env, dev, o)
	},
}

// KnownBridgeType reports whether name is a valid virtual bridge_type
// customization value.
func KnownBridgeType(name string) bool {
	_, ok := bridgeBuilders[name]
	return ok
}

// Generator builds entities for virtual device group devices.
type Generator struct {
	Env      entity.Env
	Settings entity.GeneratorSettings
}

// Generate returns every entity for dev, keyed by entity ID.
func (g *Generator) Generate(dev *indigo.Device) map[string]entity.Entity {
	out := map[string]entity.Entity{}
	if !g.Bridgeable(dev) {
		return out
	}
	cust := g.Settings.Customizations.Device(dev.Name)
	bridgeType := defaultBridgeType(dev)
	if bt := cust.BridgeType(); bt != "" {
		bridgeType = bt
	}
	build, ok := bridgeBuilders[bridgeType]
	if !ok {
		return out
	}
	out[strconv.FormatInt(dev.ID, 10)] = build(g.Env, dev, cust.Overrides())
	return out
}

// Bridgeable reports whether dev is a device group the bridge mirrors.
func (g *Generator) Bridgeable(dev *indigo.Device) bool {
	return dev.Protocol == indigo.ProtocolPlugin &&
		dev.PluginID == indigo.DeviceCollectionPluginID &&
		dev.Kind == indigo.KindRelay
}

func defaultBridgeType(dev *indigo.Device) string {
	if len(dev.GroupDeviceIDs) == 0 {
		return "VirtualBinarySensor"
	}
	return "VirtualSwitch"
}
