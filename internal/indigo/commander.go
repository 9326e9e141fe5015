package indigo

import (
	"encoding/json"
	"fmt"
)

// Action is a device command published to the uplink for the
// Indigo-side subscriber to execute. Data is base64-encoded by the
// JSON marshaller.
type Action struct {
	Name     string `json:"action"`
	DeviceID int64  `json:"device_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Index    int    `json:"index,omitempty"`
	Level    int    `json:"level,omitempty"`
	State    bool   `json:"state,omitempty"`
	Relay    bool   `json:"relay,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Action name constants, matched by the Indigo-side subscriber.
const (
	ActionTurnOn          = "turn_on"
	ActionTurnOff         = "turn_off"
	ActionSetBrightness   = "set_brightness"
	ActionSetSpeedIndex   = "set_speed_index"
	ActionLock            = "lock"
	ActionUnlock          = "unlock"
	ActionSetBinaryOutput = "set_binary_output"
	ActionSetLEDState     = "set_led_state"
	ActionSendRawExtended = "send_raw_extended"
)

// Commander executes device actions by publishing them to the uplink
// actions topic. It covers the general device operations plus the
// Insteon-specific LED and raw extended commands.
type Commander struct {
	uplink Uplink
	topic  string
	qos    byte
}

// NewCommander creates a commander publishing to
// {topicPrefix}/actions.
func NewCommander(uplink Uplink, topicPrefix string, qos byte) *Commander {
	return &Commander{
		uplink: uplink,
		topic:  topicPrefix + "/actions",
		qos:    qos,
	}
}

// TurnOn switches a device on.
func (c *Commander) TurnOn(deviceID int64) error {
	return c.send(Action{Name: ActionTurnOn, DeviceID: deviceID})
}

// TurnOff switches a device off.
func (c *Commander) TurnOff(deviceID int64) error {
	return c.send(Action{Name: ActionTurnOff, DeviceID: deviceID})
}

// SetBrightness sets a dimmer level, 0 to 100.
func (c *Commander) SetBrightness(deviceID int64, level int) error {
	return c.send(Action{Name: ActionSetBrightness, DeviceID: deviceID, Level: level})
}

// SetSpeedIndex sets a speed control's speed, 0 to 3.
func (c *Commander) SetSpeedIndex(deviceID int64, index int) error {
	return c.send(Action{Name: ActionSetSpeedIndex, DeviceID: deviceID, Index: index})
}

// Lock engages a lock device.
func (c *Commander) Lock(deviceID int64) error {
	return c.send(Action{Name: ActionLock, DeviceID: deviceID})
}

// Unlock releases a lock device.
func (c *Commander) Unlock(deviceID int64) error {
	return c.send(Action{Name: ActionUnlock, DeviceID: deviceID})
}

// SetBinaryOutput drives one output on a multi-IO device.
func (c *Commander) SetBinaryOutput(deviceID int64, index int, value bool) error {
	return c.send(Action{Name: ActionSetBinaryOutput, DeviceID: deviceID, Index: index, State: value})
}

// SetLEDState drives one keypad button LED. Relay keypads and dimmer
// keypads need different wire commands, so the hardware kind rides
// along with the action.
func (c *Commander) SetLEDState(deviceID int64, index int, value bool, relay bool) error {
	return c.send(Action{Name: ActionSetLEDState, DeviceID: deviceID, Index: index, State: value, Relay: relay})
}

// SendRawExtended sends a raw Insteon extended command to a device
// address.
func (c *Commander) SendRawExtended(address string, data []byte) error {
	return c.send(Action{Name: ActionSendRawExtended, Address: address, Data: data})
}

func (c *Commander) send(a Action) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding action %s: %w", a.Name, err)
	}
	if err := c.uplink.Publish(c.topic, payload, c.qos, false); err != nil {
		return fmt.Errorf("publishing action %s: %w", a.Name, err)
	}
	return nil
}
