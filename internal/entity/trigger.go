package entity

import (
	"fmt"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// Trigger publishes a device_automation trigger for a button press or
// hold. It has no state or availability; it fires a non-retained
// payload when the matching protocol event arrives.
type Trigger struct {
	Base

	dev         *indigo.Device
	triggerType string
	subtype     string
}

// NewTrigger builds a device_automation trigger. id and name identify
// the trigger itself; triggerType and subtype describe the action and
// the button it belongs to, such as "on" and "Button A".
func NewTrigger(env Env, dev *indigo.Device, overrides Overrides, id, name, triggerType, subtype string) *Trigger {
	t := &Trigger{
		Base:        newBase(env, "device_automation", id, name, dev.Address, overrides),
		dev:         dev,
		triggerType: triggerType,
		subtype:     subtype,
	}
	return t
}

// Topic returns the topic the trigger payload fires on.
func (t *Trigger) Topic() string {
	return t.Option("topic", t.topics().Root(t.hassType, "{d[mqtt_name]}")+"/trigger")
}

// Payload returns the payload published when the trigger fires.
func (t *Trigger) Payload() string {
	return t.Option("payload", "triggered")
}

// TriggerType returns the automation trigger type, such as "on" or
// "off_hold".
func (t *Trigger) TriggerType() string {
	return t.triggerType
}

// Subtype returns the trigger subtype shown in the Home Assistant
// automation editor.
func (t *Trigger) Subtype() string {
	return t.Option("subtype", t.subtype)
}

func (t *Trigger) Config() map[string]any {
	cfg := map[string]any{
		"automation_type": "trigger",
		"topic":           t.Topic(),
		"type":            t.triggerType,
		"subtype":         t.Subtype(),
		"payload":         t.Payload(),
		"qos":             int(t.QoS()),
		"device": map[string]any{
			"identifiers":  []any{t.dev.Address, t.dev.ID},
			"manufacturer": fmt.Sprintf("%s via Indigo MQTT Bridge", t.dev.Protocol),
			"model":        t.dev.Model,
			"name":         t.dev.Name,
		},
	}
	return t.applyConfigOverrides(cfg)
}

func (t *Trigger) Register() error {
	if err := t.publishConfig(t.Config()); err != nil {
		return err
	}
	t.markRegistered()
	return nil
}

// Fire publishes the trigger payload.
func (t *Trigger) Fire() error {
	if err := t.env.Publisher.Publish(t.Topic(), []byte(t.Payload()), t.QoS(), false); err != nil {
		return fmt.Errorf("firing trigger %s: %w", t.MQTTName(), err)
	}
	return nil
}
