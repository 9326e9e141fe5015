package entity

import (
	"testing"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

func TestSensorDeviceClassGuess(t *testing.T) {
	tests := []struct {
		subModel  string
		states    map[string]any
		wantClass string
		wantUnit  string
	}{
		{"Humidity", nil, "humidity", "%"},
		{"Luminance", nil, "illuminance", "lx"},
		{"Temperature", map[string]any{"sensorValue.ui": "72.5 °F"}, "temperature", "°F"},
		{"Temperature", map[string]any{"sensorValue.ui": "22.5 °C"}, "temperature", "°C"},
		{"Unknown", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.subModel+"_"+tt.wantUnit, func(t *testing.T) {
			env, _, _ := testEnv(t)
			dev := testDevice(t)
			dev.Kind = indigo.KindSensor
			dev.SubModel = tt.subModel
			dev.States = tt.states
			s := NewSensor(env, dev, Overrides{})

			if got := s.DeviceClass(); got != tt.wantClass {
				t.Errorf("DeviceClass() = %q, want %q", got, tt.wantClass)
			}
			if got := s.UnitOfMeasurement(); got != tt.wantUnit {
				t.Errorf("UnitOfMeasurement() = %q, want %q", got, tt.wantUnit)
			}
		})
	}
}

func TestSensorConfigAndState(t *testing.T) {
	env, pub, _ := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Office Temp"
	dev.Kind = indigo.KindSensor
	dev.SubModel = "Temperature"
	dev.States = map[string]any{"sensorValue.ui": "72.5 °F"}
	value := 72.5
	dev.SensorValue = &value
	s := NewSensor(env, dev, Overrides{})

	cfg := s.Config()
	if _, ok := cfg["payload_on"]; ok {
		t.Error("sensor config carries payload_on")
	}
	if _, ok := cfg["payload_off"]; ok {
		t.Error("sensor config carries payload_off")
	}
	if got := cfg["expire_after"]; got != 0 {
		t.Errorf("expire_after = %v, want 0", got)
	}
	if got := cfg["force_update"]; got != false {
		t.Errorf("force_update = %v, want false", got)
	}

	if err := s.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	states := pub.published("homeassistant/sensor/office_temp/state")
	if len(states) != 1 || states[0].payload != "72.5" {
		t.Fatalf("state = %v, want single 72.5", states)
	}
}

func TestSensorDefaults(t *testing.T) {
	env, _, _ := testEnv(t)
	dev := testDevice(t)
	dev.Kind = indigo.KindSensor
	s := NewSensor(env, dev, Overrides{})
	s.DeviceClassDefault = "battery"
	s.UnitDefault = "%"

	cfg := s.Config()
	if got := cfg["device_class"]; got != "battery" {
		t.Errorf("device_class = %v, want battery", got)
	}
	if got := cfg["unit_of_measurement"]; got != "%" {
		t.Errorf("unit_of_measurement = %v, want %%", got)
	}
}

func TestBinarySensorConfig(t *testing.T) {
	env, _, _ := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Front Door"
	b := NewBinarySensor(env, dev, Overrides{
		ConfigVars: map[string]any{"off_delay": 5},
	})
	b.DeviceClassDefault = "opening"

	cfg := b.Config()
	if got := cfg["device_class"]; got != "opening" {
		t.Errorf("device_class = %v, want opening", got)
	}
	if got := cfg["off_delay"]; got != 5 {
		t.Errorf("off_delay = %v, want 5", got)
	}
	if got := cfg["force_update"]; got != false {
		t.Errorf("force_update = %v, want false", got)
	}
}

func TestBinarySensorDeviceClassOverride(t *testing.T) {
	env, _, _ := testEnv(t)
	b := NewBinarySensor(env, testDevice(t), Overrides{
		ConfigVars: map[string]any{"device_class": "motion"},
	})
	b.DeviceClassDefault = "opening"

	if got := b.DeviceClass(); got != "motion" {
		t.Errorf("DeviceClass() = %q, want motion", got)
	}
}

func TestCoverState(t *testing.T) {
	tests := []struct {
		name   string
		inputs []bool
		want   string
	}{
		{"input clear means open", []bool{false}, "open"},
		{"input set means closed", []bool{true}, "closed"},
		{"no inputs defaults open", nil, "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, pub, _ := testEnv(t)
			dev := testDevice(t)
			dev.Name = "Garage Door"
			dev.Kind = indigo.KindMultiIO
			dev.BinaryInputs = tt.inputs
			c := NewCover(env, dev, Overrides{})
			if err := c.Register(); err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			states := pub.published("homeassistant/cover/garage_door/state")
			if len(states) != 1 || states[0].payload != tt.want {
				t.Fatalf("state = %v, want %s", states, tt.want)
			}
		})
	}
}

func TestCoverCommands(t *testing.T) {
	for _, payload := range []string{"OPEN", "CLOSE", "STOP"} {
		t.Run(payload, func(t *testing.T) {
			env, pub, cmd := testEnv(t)
			dev := testDevice(t)
			dev.Name = "Garage Door"
			dev.Kind = indigo.KindMultiIO
			c := NewCover(env, dev, Overrides{})
			if err := c.Register(); err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			pub.deliver(t, "homeassistant/cover/garage_door/set", payload)

			got := cmd.recorded()
			if len(got) != 1 || got[0] != "output" {
				t.Fatalf("commands = %v, want [output]", got)
			}
		})
	}
}

func TestCoverIgnoresUnknownPayload(t *testing.T) {
	env, pub, cmd := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Garage Door"
	c := NewCover(env, dev, Overrides{})
	if err := c.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pub.deliver(t, "homeassistant/cover/garage_door/set", "ON")

	if got := cmd.recorded(); len(got) != 0 {
		t.Errorf("commands = %v, want none", got)
	}
}

func TestLockStateAndCommands(t *testing.T) {
	env, pub, cmd := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Front Door Lock"
	dev.OnState = false
	l := NewLock(env, dev, Overrides{})
	if err := l.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	states := pub.published("homeassistant/lock/front_door_lock/state")
	if len(states) != 1 || states[0].payload != "UNLOCKED" {
		t.Fatalf("state = %v, want UNLOCKED", states)
	}

	pub.deliver(t, "homeassistant/lock/front_door_lock/set", "LOCK")
	pub.deliver(t, "homeassistant/lock/front_door_lock/set", "UNLOCK")

	got := cmd.recorded()
	// unlock ignored while already unlocked
	if len(got) != 1 || got[0] != "lock" {
		t.Fatalf("commands = %v, want [lock]", got)
	}
}

func TestFanConfigAndSpeed(t *testing.T) {
	env, pub, cmd := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Ceiling Fan"
	dev.Kind = indigo.KindSpeedControl
	dev.SpeedIndex = 2
	f := NewFan(env, dev, Overrides{})

	cfg := f.Config()
	if got := cfg["speed_range_min"]; got != 1 {
		t.Errorf("speed_range_min = %v, want 1", got)
	}
	if got := cfg["speed_range_max"]; got != 3 {
		t.Errorf("speed_range_max = %v, want 3", got)
	}
	if got := cfg["state_topic"]; got != "homeassistant/fan/ceiling_fan/fan/status" {
		t.Errorf("state_topic = %v", got)
	}

	if err := f.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	speeds := pub.published("homeassistant/fan/ceiling_fan/speed/percentage_state")
	if len(speeds) != 1 || speeds[0].payload != "2" {
		t.Fatalf("speed state = %v, want single 2", speeds)
	}

	pub.deliver(t, "homeassistant/fan/ceiling_fan/speed/percentage_command", "3")
	got := cmd.recorded()
	if len(got) != 1 || got[0] != "speed" {
		t.Fatalf("commands = %v, want [speed]", got)
	}
}

func TestTrigger(t *testing.T) {
	env, pub, _ := testEnv(t)
	dev := testDevice(t)
	dev.Name = "Keypad"
	tr := NewTrigger(env, dev, Overrides{},
		"123456_3_on", "Keypad Button C on", "on", "Button C")

	cfg := tr.Config()
	if got := cfg["automation_type"]; got != "trigger" {
		t.Errorf("automation_type = %v", got)
	}
	if got := cfg["type"]; got != "on" {
		t.Errorf("type = %v, want on", got)
	}
	if got := cfg["subtype"]; got != "Button C" {
		t.Errorf("subtype = %v, want Button C", got)
	}
	if _, ok := cfg["availability"]; ok {
		t.Error("trigger config carries availability")
	}

	if err := tr.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := tr.Fire(); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	fired := pub.published("homeassistant/device_automation/keypad_button_c_on/trigger")
	if len(fired) != 1 || fired[0].payload != "triggered" {
		t.Fatalf("trigger fire = %v, want single triggered", fired)
	}
	if fired[0].retained {
		t.Error("trigger payload retained")
	}
}
