package entity

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

type pubCall struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

type mockPublisher struct {
	mu        sync.Mutex
	calls     []pubCall
	subs      map[string]func(topic string, payload []byte)
	connected bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		subs:      make(map[string]func(topic string, payload []byte)),
		connected: true,
	}
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, pubCall{topic, string(payload), qos, retained})
	return nil
}

func (m *mockPublisher) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = handler
	return nil
}

func (m *mockPublisher) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, topic)
	return nil
}

func (m *mockPublisher) IsConnected() bool { return m.connected }

// published returns every publish to topic.
func (m *mockPublisher) published(topic string) []pubCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pubCall
	for _, c := range m.calls {
		if c.topic == topic {
			out = append(out, c)
		}
	}
	return out
}

// deliver simulates an inbound message on a subscribed topic.
func (m *mockPublisher) deliver(t *testing.T, topic string, payload string) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.subs[topic]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for topic %s", topic)
	}
	handler(topic, []byte(payload))
}

func (m *mockPublisher) subscribed(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[topic]
	return ok
}

type mockCommander struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockCommander) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockCommander) TurnOn(id int64) error  { m.record("on"); return nil }
func (m *mockCommander) TurnOff(id int64) error { m.record("off"); return nil }
func (m *mockCommander) SetBrightness(id int64, level int) error {
	m.record("brightness")
	return nil
}
func (m *mockCommander) SetSpeedIndex(id int64, index int) error {
	m.record("speed")
	return nil
}
func (m *mockCommander) Lock(id int64) error   { m.record("lock"); return nil }
func (m *mockCommander) Unlock(id int64) error { m.record("unlock"); return nil }
func (m *mockCommander) SetBinaryOutput(id int64, index int, value bool) error {
	m.record("output")
	return nil
}

func (m *mockCommander) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func testEnv(t *testing.T) (Env, *mockPublisher, *mockCommander) {
	t.Helper()
	pub := newMockPublisher()
	cmd := &mockCommander{}
	return Env{
		Publisher:       pub,
		Commander:       cmd,
		DiscoveryPrefix: "homeassistant",
	}, pub, cmd
}

func testDevice(t *testing.T) *indigo.Device {
	t.Helper()
	return &indigo.Device{
		ID:                 123456,
		Name:               "Office Lamp",
		Address:            "AA.BB.CC",
		Kind:               indigo.KindRelay,
		Protocol:           indigo.ProtocolInsteon,
		Model:              "SwitchLinc Relay",
		OnState:            false,
		States:             map[string]any{},
		LastChanged:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		LastSuccessfulComm: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSwitchConfig(t *testing.T) {
	env, _, _ := testEnv(t)
	sw := NewSwitch(env, testDevice(t), Overrides{})

	cfg := sw.Config()

	if got := cfg["name"]; got != "Office Lamp" {
		t.Errorf("name = %v, want Office Lamp", got)
	}
	if got := cfg["unique_id"]; got != "indigo_mqtt_office_lamp" {
		t.Errorf("unique_id = %v, want indigo_mqtt_office_lamp", got)
	}
	if got := cfg["state_topic"]; got != "homeassistant/switch/office_lamp/state" {
		t.Errorf("state_topic = %v", got)
	}
	if got := cfg["command_topic"]; got != "homeassistant/switch/office_lamp/set" {
		t.Errorf("command_topic = %v", got)
	}
	if got := cfg["optimistic"]; got != false {
		t.Errorf("optimistic = %v, want false", got)
	}

	avail, ok := cfg["availability"].([]map[string]any)
	if !ok || len(avail) != 1 {
		t.Fatalf("availability = %v, want one entry", cfg["availability"])
	}
	if got := avail[0]["topic"]; got != "homeassistant/switch/office_lamp/status" {
		t.Errorf("availability topic = %v", got)
	}

	device, ok := cfg["device"].(map[string]any)
	if !ok {
		t.Fatalf("device block missing")
	}
	if got := device["manufacturer"]; got != "insteon via Indigo MQTT Bridge" {
		t.Errorf("manufacturer = %v", got)
	}
}

func TestSwitchRegister(t *testing.T) {
	env, pub, _ := testEnv(t)
	sw := NewSwitch(env, testDevice(t), Overrides{})

	if err := sw.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	configs := pub.published("homeassistant/switch/office_lamp/config")
	if len(configs) != 1 {
		t.Fatalf("config published %d times, want 1", len(configs))
	}
	if !configs[0].retained {
		t.Error("config not retained")
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(configs[0].payload), &cfg); err != nil {
		t.Fatalf("config payload not JSON: %v", err)
	}

	avail := pub.published("homeassistant/switch/office_lamp/status")
	if len(avail) != 1 || avail[0].payload != "online" {
		t.Fatalf("availability = %v, want single online", avail)
	}

	states := pub.published("homeassistant/switch/office_lamp/state")
	if len(states) != 1 || states[0].payload != "OFF" {
		t.Fatalf("state = %v, want single OFF", states)
	}

	attrs := pub.published("homeassistant/switch/office_lamp/attributes")
	if len(attrs) != 1 {
		t.Fatalf("attributes published %d times, want 1", len(attrs))
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(attrs[0].payload), &parsed); err != nil {
		t.Fatalf("attributes not JSON: %v", err)
	}
	if parsed["indigo_id"] != "123456" {
		t.Errorf("indigo_id = %v, want 123456", parsed["indigo_id"])
	}

	if !pub.subscribed("homeassistant/switch/office_lamp/set") {
		t.Error("command topic not subscribed")
	}
}

func TestSwitchCommand(t *testing.T) {
	tests := []struct {
		name    string
		onState bool
		payload string
		want    []string
	}{
		{"on while off", false, "ON", []string{"on"}},
		{"on while on", true, "ON", nil},
		{"off while on", true, "OFF", []string{"off"}},
		{"off while off", false, "OFF", nil},
		{"unknown payload", false, "TOGGLE", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, pub, cmd := testEnv(t)
			dev := testDevice(t)
			dev.OnState = tt.onState
			sw := NewSwitch(env, dev, Overrides{})
			if err := sw.Register(); err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			pub.deliver(t, "homeassistant/switch/office_lamp/set", tt.payload)

			got := cmd.recorded()
			if len(got) != len(tt.want) {
				t.Fatalf("commands = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("command[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSwitchUpdateDevice(t *testing.T) {
	env, pub, _ := testEnv(t)
	dev := testDevice(t)
	sw := NewSwitch(env, dev, Overrides{})
	if err := sw.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	updated := dev.DeepCopy()
	updated.OnState = true
	sw.UpdateDevice(dev, updated)

	states := pub.published("homeassistant/switch/office_lamp/state")
	if len(states) != 2 {
		t.Fatalf("state published %d times, want 2", len(states))
	}
	if states[1].payload != "ON" {
		t.Errorf("updated state = %s, want ON", states[1].payload)
	}
}

func TestShutdownPublishesOfflineOnce(t *testing.T) {
	env, pub, _ := testEnv(t)
	sw := NewSwitch(env, testDevice(t), Overrides{})
	if err := sw.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := sw.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := sw.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	var offline int
	for _, c := range pub.published("homeassistant/switch/office_lamp/status") {
		if c.payload == "offline" {
			offline++
		}
	}
	if offline != 1 {
		t.Errorf("offline published %d times, want 1", offline)
	}
}

func TestShutdownWithoutRegister(t *testing.T) {
	env, pub, _ := testEnv(t)
	sw := NewSwitch(env, testDevice(t), Overrides{})

	if err := sw.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := pub.published("homeassistant/switch/office_lamp/status"); len(got) != 0 {
		t.Errorf("unregistered shutdown published %v", got)
	}
}

func TestCleanupRetractsOwnedTopics(t *testing.T) {
	env, pub, _ := testEnv(t)
	sw := NewSwitch(env, testDevice(t), Overrides{})
	if err := sw.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := sw.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	for _, topic := range []string{
		"homeassistant/switch/office_lamp/config",
		"homeassistant/switch/office_lamp/status",
		"homeassistant/switch/office_lamp/state",
		"homeassistant/switch/office_lamp/attributes",
		"homeassistant/switch/office_lamp/set",
	} {
		calls := pub.published(topic)
		last := calls[len(calls)-1]
		if last.payload != "" || !last.retained {
			t.Errorf("topic %s not retracted, last publish %+v", topic, last)
		}
	}
	if pub.subscribed("homeassistant/switch/office_lamp/set") {
		t.Error("command topic still subscribed after cleanup")
	}
}

func TestOverrides(t *testing.T) {
	env, _, _ := testEnv(t)
	overrides := Overrides{
		ConfigVars: map[string]any{
			"name":       "Desk Light {d[id]}",
			"icon":       "mdi:lamp",
			"payload_on": "UP",
			"qos":        1,
		},
	}
	sw := NewSwitch(env, testDevice(t), overrides)

	cfg := sw.Config()
	if got := cfg["name"]; got != "Desk Light 123456" {
		t.Errorf("name = %v, want rendered override", got)
	}
	if got := cfg["state_topic"]; got != "homeassistant/switch/desk_light_123456/state" {
		t.Errorf("state_topic = %v, want renamed topic", got)
	}
	if got := cfg["icon"]; got != "mdi:lamp" {
		t.Errorf("unhandled key icon = %v, want mdi:lamp", got)
	}
	if got := cfg["payload_on"]; got != "UP" {
		t.Errorf("payload_on = %v, want UP", got)
	}
	if got := cfg["qos"]; got != 1 {
		t.Errorf("qos = %v, want 1", got)
	}
}

func TestEmptyOverrideIgnored(t *testing.T) {
	env, _, _ := testEnv(t)
	overrides := Overrides{ConfigVars: map[string]any{"name": ""}}
	sw := NewSwitch(env, testDevice(t), overrides)

	if got := sw.Name(); got != "Office Lamp" {
		t.Errorf("Name() = %s, want original name for empty override", got)
	}
}

func TestAttributeTimestampsUTC(t *testing.T) {
	env, pub, _ := testEnv(t)
	dev := testDevice(t)
	loc := time.FixedZone("EST", -5*3600)
	dev.LastChanged = time.Date(2026, 3, 1, 7, 0, 0, 0, loc)
	sw := NewSwitch(env, dev, Overrides{})
	if err := sw.Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	attrs := pub.published("homeassistant/switch/office_lamp/attributes")
	var parsed map[string]any
	if err := json.Unmarshal([]byte(attrs[0].payload), &parsed); err != nil {
		t.Fatalf("attributes not JSON: %v", err)
	}
	lc, _ := parsed["last_changed"].(string)
	if !strings.HasPrefix(lc, "2026-03-01T12:00:00") {
		t.Errorf("last_changed = %s, want UTC converted timestamp", lc)
	}
}
