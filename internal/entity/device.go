package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// attributeTimeLayout matches the timestamp format Home Assistant
// automations already depend on: microsecond precision, numeric zone
// offset.
const attributeTimeLayout = "2006-01-02T15:04:05.000000-0700"

// StatefulDevice layers device state, JSON attributes and the Home
// Assistant device registry block over Available. All device-backed
// entities embed it.
type StatefulDevice struct {
	Available

	devMu sync.RWMutex
	dev   *indigo.Device

	// stateTopicDefault overrides the default state topic template for
	// kinds with a non-standard layout, such as light and fan.
	stateTopicDefault string

	// StateSender publishes the state payload(s) for dev. Kinds
	// replace the default on/off sender to change the state source or
	// add extra topics.
	StateSender func(dev *indigo.Device)
}

func newStatefulDevice(env Env, hassType string, dev *indigo.Device, overrides Overrides) StatefulDevice {
	s := StatefulDevice{
		Available: newAvailable(env, hassType,
			strconv.FormatInt(dev.ID, 10), dev.Name, dev.Address, overrides),
		dev: dev,
	}
	s.StateSender = s.sendOnOffState
	return s
}

// Device returns the current device snapshot.
func (s *StatefulDevice) Device() *indigo.Device {
	s.devMu.RLock()
	defer s.devMu.RUnlock()
	return s.dev
}

func (s *StatefulDevice) setDevice(dev *indigo.Device) {
	s.devMu.Lock()
	s.dev = dev
	s.devMu.Unlock()
}

// SetDevice replaces the stored snapshot without publishing anything.
// Entities that decouple publication from device updates use it to
// keep their snapshot fresh.
func (s *StatefulDevice) SetDevice(dev *indigo.Device) {
	s.setDevice(dev)
}

// DeviceID returns the numeric Indigo device ID.
func (s *StatefulDevice) DeviceID() int64 {
	return s.Device().ID
}

// StateTopic returns the state topic.
func (s *StatefulDevice) StateTopic() string {
	def := s.stateTopicDefault
	if def == "" {
		def = s.topics().State(s.hassType, "{d[mqtt_name]}")
	}
	return s.Option("state_topic", def)
}

func (s *StatefulDevice) stateQoS() byte {
	return byte(s.IntOption("state_topic_qos", 0))
}

func (s *StatefulDevice) stateRetain() bool {
	return s.BoolOption("state_topic_retain", true)
}

// AttributesTopic returns the JSON attributes topic.
func (s *StatefulDevice) AttributesTopic() string {
	return s.Option("json_attributes_topic", s.topics().Attributes(s.hassType, "{d[mqtt_name]}"))
}

func (s *StatefulDevice) attributesQoS() byte {
	return byte(s.IntOption("json_attributes_topic_qos", 0))
}

func (s *StatefulDevice) attributesRetain() bool {
	return s.BoolOption("json_attributes_topic_retain", true)
}

// PayloadOn returns the payload published when the device is on.
func (s *StatefulDevice) PayloadOn() string {
	return s.Option("payload_on", "ON")
}

// PayloadOff returns the payload published when the device is off.
func (s *StatefulDevice) PayloadOff() string {
	return s.Option("payload_off", "OFF")
}

// deviceConfig widens cfg with the stateful layer keys and the HA
// device registry block.
func (s *StatefulDevice) deviceConfig(cfg map[string]any) map[string]any {
	dev := s.Device()
	cfg["state_topic"] = s.StateTopic()
	cfg["payload_on"] = s.PayloadOn()
	cfg["payload_off"] = s.PayloadOff()
	cfg["json_attributes_topic"] = s.AttributesTopic()
	cfg["device"] = map[string]any{
		"identifiers":  []any{dev.Address, dev.ID},
		"manufacturer": fmt.Sprintf("%s via Indigo MQTT Bridge", dev.Protocol),
		"model":        dev.Model,
		"name":         dev.Name,
		"connections": [][]any{
			{string(dev.Protocol), dev.Address},
			{"indigo", dev.ID},
		},
	}
	return cfg
}

// PublishState publishes a payload to the state topic with the
// configured QoS and retain.
func (s *StatefulDevice) PublishState(payload string) {
	if err := s.env.Publisher.Publish(s.StateTopic(), []byte(payload), s.stateQoS(), s.stateRetain()); err != nil {
		s.logError("publishing state failed",
			"entity", s.MQTTName(), "topic", s.StateTopic(), "error", err)
	}
}

// sendOnOffState is the default StateSender.
func (s *StatefulDevice) sendOnOffState(dev *indigo.Device) {
	payload := s.PayloadOff()
	if dev.OnState {
		payload = s.PayloadOn()
	}
	s.PublishState(payload)
}

// SendAttributes publishes the JSON attributes for dev.
func (s *StatefulDevice) SendAttributes(dev *indigo.Device) {
	attrs := map[string]any{
		"last_changed":        dev.LastChanged.UTC().Format(attributeTimeLayout),
		"last_successful_com": dev.LastSuccessfulComm.UTC().Format(attributeTimeLayout),
		"indigo_id":           s.ID(),
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		s.logError("encoding attributes failed", "entity", s.MQTTName(), "error", err)
		return
	}
	if err := s.env.Publisher.Publish(s.AttributesTopic(), payload, s.attributesQoS(), s.attributesRetain()); err != nil {
		s.logError("publishing attributes failed",
			"entity", s.MQTTName(), "topic", s.AttributesTopic(), "error", err)
	}
}

// Refresh republishes state and attributes from the current snapshot.
func (s *StatefulDevice) Refresh() {
	dev := s.Device()
	s.StateSender(dev)
	s.SendAttributes(dev)
}

// UpdateDevice stores the new snapshot and republishes state and
// attributes. State is resent even when unchanged so a restarted Home
// Assistant converges without waiting for the next transition.
func (s *StatefulDevice) UpdateDevice(orig, updated *indigo.Device) {
	_ = orig
	s.setDevice(updated)
	s.StateSender(updated)
	s.SendAttributes(updated)
}

// registerDevice publishes config, availability, state and attributes
// and marks the entity registered.
func (s *StatefulDevice) registerDevice(cfg map[string]any) error {
	if err := s.publishConfig(cfg); err != nil {
		return err
	}
	if err := s.publishAvailable(); err != nil {
		return err
	}
	dev := s.Device()
	s.StateSender(dev)
	s.SendAttributes(dev)
	s.markRegistered()
	return nil
}

func (s *StatefulDevice) retractState() error {
	return s.retract(s.StateTopic(), s.stateQoS())
}

func (s *StatefulDevice) retractAttributes() error {
	return s.retract(s.AttributesTopic(), s.attributesQoS())
}

// Cleanup retracts state, attributes, availability and the discovery
// config.
func (s *StatefulDevice) Cleanup() error {
	if err := s.retractState(); err != nil {
		return err
	}
	if err := s.retractAttributes(); err != nil {
		return err
	}
	return s.Available.Cleanup()
}

// CommandableDevice layers a command topic subscription over
// StatefulDevice.
type CommandableDevice struct {
	StatefulDevice

	// commandTopicDefault overrides the default command topic template.
	commandTopicDefault string

	// CommandHandler consumes inbound command payloads. The default
	// handler turns the device on or off through the Commander when
	// the payload matches payload_on or payload_off and the device is
	// not already in that state.
	CommandHandler func(payload string)
}

func newCommandableDevice(env Env, hassType string, dev *indigo.Device, overrides Overrides) CommandableDevice {
	c := CommandableDevice{
		StatefulDevice: newStatefulDevice(env, hassType, dev, overrides),
	}
	c.CommandHandler = c.defaultCommandHandler
	return c
}

// CommandTopic returns the command topic.
func (c *CommandableDevice) CommandTopic() string {
	def := c.commandTopicDefault
	if def == "" {
		def = c.topics().Command(c.hassType, "{d[mqtt_name]}")
	}
	return c.Option("command_topic", def)
}

// Optimistic reports whether Home Assistant should assume commands
// succeed without waiting for state.
func (c *CommandableDevice) Optimistic() bool {
	return c.BoolOption("optimistic", false)
}

// commandableConfig widens cfg with the command layer keys.
func (c *CommandableDevice) commandableConfig(cfg map[string]any) map[string]any {
	cfg["command_topic"] = c.CommandTopic()
	cfg["optimistic"] = c.Optimistic()
	return cfg
}

// SubscribeTopic subscribes handler to an additional command topic at
// the entity QoS.
func (c *CommandableDevice) SubscribeTopic(topic string, handler func(payload []byte)) error {
	err := c.env.Publisher.Subscribe(topic, c.QoS(), func(_ string, payload []byte) {
		handler(payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// subscribeCommands wires CommandHandler to the command topic.
func (c *CommandableDevice) subscribeCommands() error {
	return c.SubscribeTopic(c.CommandTopic(), func(payload []byte) {
		c.logDebug("command received",
			"entity", c.MQTTName(), "payload", string(payload))
		c.CommandHandler(string(payload))
	})
}

func (c *CommandableDevice) defaultCommandHandler(payload string) {
	if err := c.SwitchOnOff(payload); err != nil {
		c.logError("command failed",
			"entity", c.MQTTName(), "payload", payload, "error", err)
	}
}

// SwitchOnOff executes the standard on/off command semantics for
// payload against the current device state.
func (c *CommandableDevice) SwitchOnOff(payload string) error {
	if c.env.Commander == nil {
		return ErrNoCommander
	}
	dev := c.Device()
	switch payload {
	case c.PayloadOn():
		if !dev.OnState {
			return c.env.Commander.TurnOn(dev.ID)
		}
	case c.PayloadOff():
		if dev.OnState {
			return c.env.Commander.TurnOff(dev.ID)
		}
	}
	return nil
}

// registerCommandable registers the device layers and subscribes the
// command topic.
func (c *CommandableDevice) registerCommandable(cfg map[string]any) error {
	if err := c.registerDevice(cfg); err != nil {
		return err
	}
	return c.subscribeCommands()
}

func (c *CommandableDevice) retractCommand() error {
	if err := c.env.Publisher.Unsubscribe(c.CommandTopic()); err != nil {
		c.logError("unsubscribing command topic failed",
			"entity", c.MQTTName(), "topic", c.CommandTopic(), "error", err)
	}
	return c.retract(c.CommandTopic(), c.QoS())
}

// Cleanup unsubscribes and retracts the command topic, then the device
// layers.
func (c *CommandableDevice) Cleanup() error {
	if err := c.retractCommand(); err != nil {
		return err
	}
	return c.StatefulDevice.Cleanup()
}
