package entity

import (
	"strconv"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// Fan publishes a speed control device as a Home Assistant fan. Speed
// maps through the fan's speed index range rather than raw
// percentages.
type Fan struct {
	CommandableDevice
}

// NewFan builds a fan entity for dev.
func NewFan(env Env, dev *indigo.Device, overrides Overrides) *Fan {
	f := &Fan{
		CommandableDevice: newCommandableDevice(env, "fan", dev, overrides),
	}
	f.stateTopicDefault = f.topics().Root("fan", "{d[mqtt_name]}") + "/fan/status"
	f.commandTopicDefault = f.topics().Root("fan", "{d[mqtt_name]}") + "/fan/switch"
	return f
}

// PercentageCommandTopic returns the speed command topic.
func (f *Fan) PercentageCommandTopic() string {
	return f.Option("percentage_command_topic",
		f.topics().Root(f.hassType, "{d[mqtt_name]}")+"/speed/percentage_command")
}

// PercentageStateTopic returns the speed state topic.
func (f *Fan) PercentageStateTopic() string {
	return f.Option("percentage_state_topic",
		f.topics().Root(f.hassType, "{d[mqtt_name]}")+"/speed/percentage_state")
}

func (f *Fan) percentageRetain() bool {
	return f.BoolOption("percentage_state_topic_retain", true)
}

func (f *Fan) Config() map[string]any {
	cfg := f.baseConfig()
	f.availabilityConfig(cfg)
	f.deviceConfig(cfg)
	f.commandableConfig(cfg)
	cfg["percentage_command_topic"] = f.PercentageCommandTopic()
	cfg["percentage_state_topic"] = f.PercentageStateTopic()
	cfg["speed_range_min"] = 1
	cfg["speed_range_max"] = 3
	return f.applyConfigOverrides(cfg)
}

func (f *Fan) Register() error {
	if err := f.registerCommandable(f.Config()); err != nil {
		return err
	}
	if err := f.SubscribeTopic(f.PercentageCommandTopic(), func(payload []byte) {
		f.onSpeedCommand(string(payload))
	}); err != nil {
		return err
	}
	f.sendSpeedState(f.Device())
	return nil
}

func (f *Fan) onSpeedCommand(payload string) {
	index, err := strconv.Atoi(payload)
	if err != nil {
		f.logError("invalid speed payload",
			"entity", f.MQTTName(), "payload", payload)
		return
	}
	if f.env.Commander == nil {
		f.logError("speed command with no commander", "entity", f.MQTTName())
		return
	}
	if err := f.env.Commander.SetSpeedIndex(f.DeviceID(), index); err != nil {
		f.logError("setting speed failed",
			"entity", f.MQTTName(), "index", index, "error", err)
	}
}

func (f *Fan) sendSpeedState(dev *indigo.Device) {
	if err := f.env.Publisher.Publish(f.PercentageStateTopic(),
		[]byte(strconv.Itoa(dev.SpeedIndex)), f.QoS(), f.percentageRetain()); err != nil {
		f.logError("publishing speed state failed",
			"entity", f.MQTTName(), "error", err)
	}
}

func (f *Fan) UpdateDevice(orig, updated *indigo.Device) {
	f.CommandableDevice.UpdateDevice(orig, updated)
	f.sendSpeedState(updated)
}

func (f *Fan) Cleanup() error {
	if err := f.env.Publisher.Unsubscribe(f.PercentageCommandTopic()); err != nil {
		f.logError("unsubscribing speed topic failed",
			"entity", f.MQTTName(), "error", err)
	}
	if err := f.retract(f.PercentageStateTopic(), f.QoS()); err != nil {
		return err
	}
	return f.CommandableDevice.Cleanup()
}
