package insteon

import (
	"fmt"
	"strings"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// Events maps raw Insteon command functions to the trigger vocabulary
// exposed to Home Assistant automations.
var Events = map[string]string{
	"on":                    "on",
	"on to 100% (instant)":  "instant_on",
	"off":                   "off",
	"off (instant)":         "instant_off",
	"start brighten":        "start_brighten",
	"stop brighten":         "stop_brighten",
	"start dim":             "start_dim",
	"stop dim":              "stop_dim",
}

// LowBatteryEvent is the event fired when a RemoteLinc broadcasts on
// its low battery scene. It is deliberately unprefixed so existing
// automations keyed on the bare name keep working.
const LowBatteryEvent = "low_battery"

// RemoteLowBatteryScene is the scene RemoteLinc hardware reserves for
// low battery broadcasts.
const RemoteLowBatteryScene = 9

// eventSource is what a processor needs to know about the entity it
// speaks for.
type eventSource interface {
	ID() string
	Name() string
	HAFriendlyName() string
}

// eventProcessor converts Insteon commands on a single scene into
// prefixed bridge events.
type eventProcessor struct {
	src         eventSource
	eventPrefix string
	scene       int
	log         *logging.Logger
}

func (p eventProcessor) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	if cmd.Scene != p.scene {
		return "", nil, false
	}
	trigger, ok := Events[cmd.Func]
	if !ok {
		if p.log != nil {
			p.log.Warn("unknown command function",
				"func", cmd.Func, "address", cmd.Address, "scene", cmd.Scene)
		}
		return "", nil, false
	}
	return fmt.Sprintf("%s_%s", p.eventPrefix, trigger), p.payload(cmd), true
}

func (p eventProcessor) payload(cmd indigo.Command) map[string]any {
	name := p.src.HAFriendlyName()
	if name == "" {
		name = p.src.Name()
	}
	return map[string]any{
		"sender_id": strings.ReplaceAll(strings.ToLower(name), " ", "_"),
		"name":      name,
		"id":        p.src.ID(),
		"address":   cmd.Address,
		"group":     cmd.Scene,
	}
}
