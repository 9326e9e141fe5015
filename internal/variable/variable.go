// Package variable generates entities for Indigo variables. Variables
// holding "true"/"false" become binary sensors; everything else is a
// plain text sensor.
package variable

import (
	"strconv"
	"strings"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

var bridgeBuilders = map[string]func(env entity.Env, v *indigo.Variable, o entity.Overrides) entity.Entity{
	"VariableSensor": func(env entity.Env, v *indigo.Variable, o entity.Overrides) entity.Entity {
		return entity.NewVariableSensor(env, v, o)
	},
	"VariableBinarySensor": func(env entity.Env, v *indigo.Variable, o entity.Overrides) entity.Entity {
		return entity.NewVariableBinarySensor(env, v, o)
	},
}

// KnownBridgeType reports whether name is a valid variable bridge_type
// customization value.
func KnownBridgeType(name string) bool {
	_, ok := bridgeBuilders[name]
	return ok
}

// Generator builds entities for Indigo variables.
type Generator struct {
	Env      entity.Env
	Settings entity.GeneratorSettings
}

// Generate returns the entity for v, keyed by entity ID.
func (g *Generator) Generate(v *indigo.Variable) map[string]entity.Entity {
	out := map[string]entity.Entity{}
	cust := g.Settings.Customizations.Variable(v.Name)
	bridgeType := defaultBridgeType(v)
	if bt := cust.BridgeType(); bt != "" {
		bridgeType = bt
	}
	build, ok := bridgeBuilders[bridgeType]
	if !ok {
		return out
	}
	out[strconv.FormatInt(v.ID, 10)] = build(g.Env, v, cust.Overrides())
	return out
}

func defaultBridgeType(v *indigo.Variable) string {
	switch strings.ToLower(v.Value) {
	case "true", "false":
		return "VariableBinarySensor"
	}
	return "VariableSensor"
}
