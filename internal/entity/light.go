package entity

import (
	"strconv"
	"sync"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// Light publishes a dimmer device as a Home Assistant light with
// brightness support on a 0-100 scale.
type Light struct {
	CommandableDevice

	// BrightnessSource returns the brightness level for dev. Protocol
	// packages replace it for synthetic lights such as keypad
	// backlights.
	BrightnessSource func(dev *indigo.Device) int

	// BrightnessCommandHandler consumes inbound brightness command
	// payloads.
	BrightnessCommandHandler func(payload string)

	suppressMu    sync.Mutex
	dimmerCommand bool
}

// NewLight builds a light entity for dev.
func NewLight(env Env, dev *indigo.Device, overrides Overrides) *Light {
	l := &Light{
		CommandableDevice: newCommandableDevice(env, "light", dev, overrides),
	}
	l.stateTopicDefault = l.topics().Root("light", "{d[mqtt_name]}") + "/light/status"
	l.commandTopicDefault = l.topics().Root("light", "{d[mqtt_name]}") + "/light/switch"
	l.BrightnessSource = func(dev *indigo.Device) int { return dev.Brightness }
	l.BrightnessCommandHandler = l.defaultBrightnessCommand
	l.CommandHandler = l.onSwitchCommand
	return l
}

// BrightnessCommandTopic returns the brightness command topic.
func (l *Light) BrightnessCommandTopic() string {
	return l.Option("brightness_command_topic",
		l.topics().Root(l.hassType, "{d[mqtt_name]}")+"/brightness/set")
}

// BrightnessStateTopic returns the brightness state topic.
func (l *Light) BrightnessStateTopic() string {
	return l.Option("brightness_state_topic",
		l.topics().Root(l.hassType, "{d[mqtt_name]}")+"/brightness/status")
}

func (l *Light) brightnessRetain() bool {
	return l.BoolOption("brightness_command_topic_retain", true)
}

// BrightnessScale returns the maximum brightness value.
func (l *Light) BrightnessScale() int {
	return l.IntOption("brightness_scale", 100)
}

func (l *Light) Config() map[string]any {
	cfg := l.baseConfig()
	l.availabilityConfig(cfg)
	l.deviceConfig(cfg)
	l.commandableConfig(cfg)
	cfg["brightness_state_topic"] = l.BrightnessStateTopic()
	cfg["brightness_command_topic"] = l.BrightnessCommandTopic()
	cfg["brightness_scale"] = l.BrightnessScale()
	if tmpl := l.Option("state_value_template", ""); tmpl != "" {
		cfg["state_value_template"] = tmpl
	}
	return l.applyConfigOverrides(cfg)
}

func (l *Light) Register() error {
	if err := l.registerCommandable(l.Config()); err != nil {
		return err
	}
	if err := l.SubscribeTopic(l.BrightnessCommandTopic(), func(payload []byte) {
		l.logDebug("brightness command received",
			"entity", l.MQTTName(), "payload", string(payload))
		l.BrightnessCommandHandler(string(payload))
	}); err != nil {
		return err
	}
	l.SendBrightness(l.Device())
	return nil
}

// SendBrightness publishes the brightness state for dev.
func (l *Light) SendBrightness(dev *indigo.Device) {
	level := l.BrightnessSource(dev)
	if err := l.env.Publisher.Publish(l.BrightnessStateTopic(),
		[]byte(strconv.Itoa(level)), l.QoS(), l.brightnessRetain()); err != nil {
		l.logError("publishing brightness failed",
			"entity", l.MQTTName(), "error", err)
	}
}

func (l *Light) UpdateDevice(orig, updated *indigo.Device) {
	l.CommandableDevice.UpdateDevice(orig, updated)
	l.SendBrightness(updated)
}

// defaultBrightnessCommand applies a brightness command. Setting a
// dimmer level also flips the on/off state inside Indigo, which echoes
// back as a state transition; the next on/off command from Home
// Assistant is then a stale duplicate, so it is suppressed.
func (l *Light) defaultBrightnessCommand(payload string) {
	level, err := strconv.Atoi(payload)
	if err != nil {
		l.logError("invalid brightness payload",
			"entity", l.MQTTName(), "payload", payload)
		return
	}
	dev := l.Device()
	if (level > 0 && !dev.OnState) || level == 0 {
		l.setDimmerCommand(true)
	}
	if l.env.Commander == nil {
		l.logError("brightness command with no commander", "entity", l.MQTTName())
		return
	}
	if err := l.env.Commander.SetBrightness(dev.ID, level); err != nil {
		l.logError("setting brightness failed",
			"entity", l.MQTTName(), "level", level, "error", err)
	}
}

func (l *Light) onSwitchCommand(payload string) {
	if l.consumeDimmerCommand() {
		return
	}
	if err := l.SwitchOnOff(payload); err != nil {
		l.logError("command failed",
			"entity", l.MQTTName(), "payload", payload, "error", err)
	}
}

func (l *Light) setDimmerCommand(v bool) {
	l.suppressMu.Lock()
	l.dimmerCommand = v
	l.suppressMu.Unlock()
}

func (l *Light) consumeDimmerCommand() bool {
	l.suppressMu.Lock()
	defer l.suppressMu.Unlock()
	was := l.dimmerCommand
	l.dimmerCommand = false
	return was
}

func (l *Light) retractBrightness() error {
	return l.retract(l.BrightnessStateTopic(), l.QoS())
}

func (l *Light) Cleanup() error {
	if err := l.env.Publisher.Unsubscribe(l.BrightnessCommandTopic()); err != nil {
		l.logError("unsubscribing brightness topic failed",
			"entity", l.MQTTName(), "error", err)
	}
	if err := l.retractBrightness(); err != nil {
		return err
	}
	return l.CommandableDevice.Cleanup()
}
