package indigo

import (
	"strconv"
	"time"
)

// Device is a snapshot of an Indigo device as exposed by the registry.
// Snapshots are value types: the registry hands out copies, so holding
// one across an update never observes a half-written device.
type Device struct {
	// Identity
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`

	// Classification
	Kind     Kind     `json:"kind"`
	Protocol Protocol `json:"protocol"`
	Model    string   `json:"model"`
	SubModel string   `json:"sub_model"`
	PluginID string   `json:"plugin_id,omitempty"`

	// IsLockSubType distinguishes lock relays from plain switches.
	IsLockSubType bool `json:"is_lock_sub_type,omitempty"`

	// FirmwareVersion as reported by the device, if known.
	FirmwareVersion int `json:"firmware_version,omitempty"`

	// Current state
	OnState     bool     `json:"on_state"`
	Brightness  int      `json:"brightness,omitempty"`
	SpeedIndex  int      `json:"speed_index,omitempty"`
	SensorValue *float64 `json:"sensor_value,omitempty"`

	// States holds named state values that don't warrant their own
	// field, keyed the way Indigo exposes them (e.g. "sensorValue.ui").
	States map[string]any `json:"states,omitempty"`

	// BatteryLevel is the reported battery percentage, nil when the
	// device does not report one.
	BatteryLevel *int `json:"battery_level,omitempty"`

	// Keypad/remote layout
	ButtonGroupCount int    `json:"button_group_count,omitempty"`
	LEDStates        []bool `json:"led_states,omitempty"`

	// Multi-IO state
	BinaryInputs  []bool `json:"binary_inputs,omitempty"`
	BinaryOutputs []bool `json:"binary_outputs,omitempty"`

	// GroupDeviceIDs lists member devices for plugin device groups.
	GroupDeviceIDs []int64 `json:"group_device_ids,omitempty"`

	// Timestamps
	LastChanged        time.Time `json:"last_changed"`
	LastSuccessfulComm time.Time `json:"last_successful_comm"`
}

// DeepCopy creates a complete independent copy of the Device.
// Slice and map fields are cloned so modifications to the copy do not
// affect the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.States != nil {
		cpy.States = make(map[string]any, len(d.States))
		for k, v := range d.States {
			cpy.States[k] = v
		}
	}
	if d.SensorValue != nil {
		v := *d.SensorValue
		cpy.SensorValue = &v
	}
	if d.BatteryLevel != nil {
		v := *d.BatteryLevel
		cpy.BatteryLevel = &v
	}
	if d.LEDStates != nil {
		cpy.LEDStates = make([]bool, len(d.LEDStates))
		copy(cpy.LEDStates, d.LEDStates)
	}
	if d.BinaryInputs != nil {
		cpy.BinaryInputs = make([]bool, len(d.BinaryInputs))
		copy(cpy.BinaryInputs, d.BinaryInputs)
	}
	if d.BinaryOutputs != nil {
		cpy.BinaryOutputs = make([]bool, len(d.BinaryOutputs))
		copy(cpy.BinaryOutputs, d.BinaryOutputs)
	}
	if d.GroupDeviceIDs != nil {
		cpy.GroupDeviceIDs = make([]int64, len(d.GroupDeviceIDs))
		copy(cpy.GroupDeviceIDs, d.GroupDeviceIDs)
	}

	return &cpy
}

// IDString returns the device ID in the form entity and follower maps
// are keyed by.
func (d *Device) IDString() string {
	return strconv.FormatInt(d.ID, 10)
}

// StateString returns a named state value as a string, or "" when the
// state is missing or not a string. Used for UI-formatted values like
// "sensorValue.ui".
func (d *Device) StateString(key string) string {
	if d.States == nil {
		return ""
	}
	if s, ok := d.States[key].(string); ok {
		return s
	}
	return ""
}

// Variable is a snapshot of an Indigo variable.
type Variable struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// IDString returns the variable ID in the form entity and follower
// maps are keyed by.
func (v *Variable) IDString() string {
	return strconv.FormatInt(v.ID, 10)
}

// Kind represents the upstream device class.
type Kind string

// Kind constants.
const (
	KindRelay        Kind = "relay"
	KindDimmer       Kind = "dimmer"
	KindSpeedControl Kind = "speedcontrol"
	KindSensor       Kind = "sensor"
	KindMultiIO      Kind = "multiio"
)

// AllKinds returns all valid device kinds.
func AllKinds() []Kind {
	return []Kind{
		KindRelay,
		KindDimmer,
		KindSpeedControl,
		KindSensor,
		KindMultiIO,
	}
}

// Protocol represents the communication protocol behind a device.
type Protocol string

// Protocol constants.
const (
	ProtocolInsteon Protocol = "insteon"
	ProtocolZWave   Protocol = "zwave"
	ProtocolPlugin  Protocol = "plugin"
	ProtocolUnknown Protocol = "unknown"
)

// AllProtocols returns all valid protocol values.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolInsteon,
		ProtocolZWave,
		ProtocolPlugin,
		ProtocolUnknown,
	}
}

// DeviceCollectionPluginID identifies the virtual device collection
// plugin whose devices the bridge mirrors as virtual entities.
const DeviceCollectionPluginID = "com.perceptiveautomation.indigoplugin.devicecollection"

// Command is a low-level protocol command observed on the network,
// such as an Insteon group broadcast from a keypad button press.
type Command struct {
	Protocol Protocol `json:"protocol"`
	Address  string   `json:"address"`
	Scene    int      `json:"scene"`
	Func     string   `json:"func"`
}
