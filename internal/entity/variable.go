package entity

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// StatefulVariable layers variable state over Available. Variables
// have no hardware address or communication timestamps, so unlike
// devices they publish no attributes topic and their registry block
// keys off the variable name.
type StatefulVariable struct {
	Available

	varMu sync.RWMutex
	v     *indigo.Variable

	// StateSender publishes the state payload for v.
	StateSender func(v *indigo.Variable)
}

func newStatefulVariable(env Env, hassType string, v *indigo.Variable, overrides Overrides) StatefulVariable {
	s := StatefulVariable{
		Available: newAvailable(env, hassType,
			strconv.FormatInt(v.ID, 10), v.Name, "", overrides),
		v: v,
	}
	s.StateSender = func(v *indigo.Variable) {
		s.PublishState(v.Value)
	}
	return s
}

// Variable returns the current variable snapshot.
func (s *StatefulVariable) Variable() *indigo.Variable {
	s.varMu.RLock()
	defer s.varMu.RUnlock()
	return s.v
}

func (s *StatefulVariable) setVariable(v *indigo.Variable) {
	s.varMu.Lock()
	s.v = v
	s.varMu.Unlock()
}

// StateTopic returns the state topic.
func (s *StatefulVariable) StateTopic() string {
	return s.Option("state_topic", s.topics().State(s.hassType, "{d[mqtt_name]}"))
}

func (s *StatefulVariable) stateQoS() byte {
	return byte(s.IntOption("state_topic_qos", 0))
}

func (s *StatefulVariable) stateRetain() bool {
	return s.BoolOption("state_topic_retain", true)
}

// PublishState publishes a payload to the state topic.
func (s *StatefulVariable) PublishState(payload string) {
	if err := s.env.Publisher.Publish(s.StateTopic(), []byte(payload), s.stateQoS(), s.stateRetain()); err != nil {
		s.logError("publishing variable state failed",
			"entity", s.MQTTName(), "error", err)
	}
}

func (s *StatefulVariable) variableConfig(cfg map[string]any) map[string]any {
	v := s.Variable()
	cfg["state_topic"] = s.StateTopic()
	cfg["device"] = map[string]any{
		"identifiers":  []any{v.Name},
		"manufacturer": fmt.Sprintf("Indigo variable %s via Indigo MQTT Bridge", v.Name),
		"model":        "variable",
		"name":         v.Name,
	}
	return cfg
}

func (s *StatefulVariable) registerVariable(cfg map[string]any) error {
	if err := s.publishConfig(cfg); err != nil {
		return err
	}
	if err := s.publishAvailable(); err != nil {
		return err
	}
	s.StateSender(s.Variable())
	s.markRegistered()
	return nil
}

// UpdateVariable stores the new snapshot and republishes state.
func (s *StatefulVariable) UpdateVariable(orig, updated *indigo.Variable) {
	_ = orig
	s.setVariable(updated)
	s.StateSender(updated)
}

func (s *StatefulVariable) Cleanup() error {
	if err := s.retract(s.StateTopic(), s.stateQoS()); err != nil {
		return err
	}
	return s.Available.Cleanup()
}

// VariableBinarySensor publishes a boolean-valued Indigo variable as a
// Home Assistant binary sensor.
type VariableBinarySensor struct {
	StatefulVariable
}

// NewVariableBinarySensor builds a binary sensor entity for v.
func NewVariableBinarySensor(env Env, v *indigo.Variable, overrides Overrides) *VariableBinarySensor {
	b := &VariableBinarySensor{
		StatefulVariable: newStatefulVariable(env, "binary_sensor", v, overrides),
	}
	b.StateSender = func(v *indigo.Variable) {
		state := b.PayloadOff()
		if v.Value == b.OnValue() {
			state = b.PayloadOn()
		}
		b.PublishState(state)
	}
	return b
}

// OnValue returns the variable value that reads as on. It lives at the
// root override level because it shapes bridge behaviour rather than
// the discovery payload.
func (b *VariableBinarySensor) OnValue() string {
	return b.RootOption("on_value", "true")
}

// PayloadOn returns the payload published when the variable matches
// the on value.
func (b *VariableBinarySensor) PayloadOn() string {
	return b.Option("payload_on", "ON")
}

// PayloadOff returns the payload published otherwise.
func (b *VariableBinarySensor) PayloadOff() string {
	return b.Option("payload_off", "OFF")
}

func (b *VariableBinarySensor) Config() map[string]any {
	cfg := b.baseConfig()
	b.availabilityConfig(cfg)
	b.variableConfig(cfg)
	cfg["payload_on"] = b.PayloadOn()
	cfg["payload_off"] = b.PayloadOff()
	if class := b.Option("device_class", ""); class != "" {
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

func (b *VariableBinarySensor) Register() error {
	return b.registerVariable(b.Config())
}

// VariableSensor publishes any other Indigo variable as a Home
// Assistant sensor with its raw value.
type VariableSensor struct {
	StatefulVariable
}

// NewVariableSensor builds a sensor entity for v.
func NewVariableSensor(env Env, v *indigo.Variable, overrides Overrides) *VariableSensor {
	return &VariableSensor{
		StatefulVariable: newStatefulVariable(env, "sensor", v, overrides),
	}
}

func (s *VariableSensor) Config() map[string]any {
	cfg := s.baseConfig()
	s.availabilityConfig(cfg)
	s.variableConfig(cfg)
	cfg["expire_after"] = s.IntOption("expire_after", 0)
	cfg["force_update"] = s.BoolOption("force_update", false)
	if unit := s.Option("unit_of_measurement", ""); unit != "" {
		cfg["unit_of_measurement"] = unit
	}
	return s.applyConfigOverrides(cfg)
}

func (s *VariableSensor) Register() error {
	return s.registerVariable(s.Config())
}
