package indigo

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// mockUplink records publishes and lets tests deliver inbound messages
// to registered handlers.
type mockUplink struct {
	mu       sync.Mutex
	pubs     []mockPublish
	handlers map[string]func(topic string, payload []byte)
	unsubbed []string
}

type mockPublish struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockUplink() *mockUplink {
	return &mockUplink{handlers: map[string]func(topic string, payload []byte){}}
}

func (m *mockUplink) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pubs = append(m.pubs, mockPublish{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockUplink) Subscribe(topic string, _ byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockUplink) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubbed = append(m.unsubbed, topic)
	delete(m.handlers, topic)
	return nil
}

func (m *mockUplink) IsConnected() bool { return true }

// deliver routes a message through the handler whose filter covers the
// topic. Filters here end in "+" or match exactly.
func (m *mockUplink) deliver(t *testing.T, topic string, payload []byte) {
	t.Helper()
	m.mu.Lock()
	var handler func(string, []byte)
	for filter, h := range m.handlers {
		if filter == topic || (len(filter) > 0 && filter[len(filter)-1] == '+' && len(topic) >= len(filter)-1 && topic[:len(filter)-1] == filter[:len(filter)-1]) {
			handler = h
			break
		}
	}
	m.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed for topic %s", topic)
	}
	handler(topic, payload)
}

// recordingNotifier counts callbacks and captures the latest arguments.
type recordingNotifier struct {
	mu         sync.Mutex
	created    []*Device
	updated    [][2]*Device
	deleted    []*Device
	varCreated []*Variable
	varUpdated [][2]*Variable
	varDeleted []*Variable
	commands   []Command
}

func (n *recordingNotifier) DeviceCreated(dev *Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, dev)
}

func (n *recordingNotifier) DeviceUpdated(orig, updated *Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, [2]*Device{orig, updated})
}

func (n *recordingNotifier) DeviceDeleted(dev *Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, dev)
}

func (n *recordingNotifier) VariableCreated(v *Variable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.varCreated = append(n.varCreated, v)
}

func (n *recordingNotifier) VariableUpdated(orig, updated *Variable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.varUpdated = append(n.varUpdated, [2]*Variable{orig, updated})
}

func (n *recordingNotifier) VariableDeleted(v *Variable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.varDeleted = append(n.varDeleted, v)
}

func (n *recordingNotifier) ProcessCommand(_ context.Context, cmd Command) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, cmd)
}

// newTestFeed builds a started feed with a fresh registry.
func newTestFeed(t *testing.T) (*Feed, *mockUplink, *Registry, *recordingNotifier) {
	t.Helper()

	uplink := newMockUplink()
	registry := NewRegistry()
	notifier := &recordingNotifier{}

	feed, err := NewFeed(FeedDeps{
		Uplink:      uplink,
		Registry:    registry,
		Notifier:    notifier,
		TopicPrefix: "indigo",
		QoS:         1,
	})
	if err != nil {
		t.Fatalf("NewFeed() error: %v", err)
	}
	if err := feed.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return feed, uplink, registry, notifier
}

func deviceJSON(t *testing.T, dev *Device) []byte {
	t.Helper()
	data, err := json.Marshal(dev)
	if err != nil {
		t.Fatalf("marshal device: %v", err)
	}
	return data
}

func TestNewFeedRequiresDependencies(t *testing.T) {
	uplink := newMockUplink()
	registry := NewRegistry()
	notifier := &recordingNotifier{}

	cases := []struct {
		name string
		deps FeedDeps
	}{
		{"missing uplink", FeedDeps{Registry: registry, Notifier: notifier, TopicPrefix: "indigo"}},
		{"missing registry", FeedDeps{Uplink: uplink, Notifier: notifier, TopicPrefix: "indigo"}},
		{"missing notifier", FeedDeps{Uplink: uplink, Registry: registry, TopicPrefix: "indigo"}},
		{"missing prefix", FeedDeps{Uplink: uplink, Registry: registry, Notifier: notifier}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFeed(tc.deps); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFeedDeviceLifecycle(t *testing.T) {
	_, uplink, registry, notifier := newTestFeed(t)

	dev := &Device{ID: 123, Name: "Porch Light", Kind: KindDimmer, Protocol: ProtocolInsteon}
	uplink.deliver(t, "indigo/devices/123", deviceJSON(t, dev))

	if len(notifier.created) != 1 {
		t.Fatalf("created = %d, want 1", len(notifier.created))
	}
	if got, ok := registry.Device(123); !ok || got.Name != "Porch Light" {
		t.Errorf("registry device = %+v, ok = %t", got, ok)
	}

	dev.Brightness = 50
	uplink.deliver(t, "indigo/devices/123", deviceJSON(t, dev))

	if len(notifier.updated) != 1 {
		t.Fatalf("updated = %d, want 1", len(notifier.updated))
	}
	if notifier.updated[0][0].Brightness != 0 {
		t.Errorf("orig brightness = %d, want 0", notifier.updated[0][0].Brightness)
	}
	if notifier.updated[0][1].Brightness != 50 {
		t.Errorf("updated brightness = %d, want 50", notifier.updated[0][1].Brightness)
	}

	uplink.deliver(t, "indigo/devices/123", nil)

	if len(notifier.deleted) != 1 {
		t.Fatalf("deleted = %d, want 1", len(notifier.deleted))
	}
	if _, ok := registry.Device(123); ok {
		t.Error("device still in registry after retraction")
	}
}

func TestFeedDeviceIDFromTopic(t *testing.T) {
	_, uplink, registry, notifier := newTestFeed(t)

	uplink.deliver(t, "indigo/devices/77", []byte(`{"name":"Hall Sensor","kind":"sensor","protocol":"zwave"}`))

	if len(notifier.created) != 1 {
		t.Fatalf("created = %d, want 1", len(notifier.created))
	}
	if notifier.created[0].ID != 77 {
		t.Errorf("ID = %d, want 77", notifier.created[0].ID)
	}
	if _, ok := registry.Device(77); !ok {
		t.Error("device not stored under topic id")
	}
}

func TestFeedRejectsBadDeviceSnapshots(t *testing.T) {
	_, uplink, registry, notifier := newTestFeed(t)

	// Malformed JSON.
	uplink.deliver(t, "indigo/devices/5", []byte(`{not json`))
	// ID mismatch between topic and payload.
	uplink.deliver(t, "indigo/devices/5", []byte(`{"id":6,"name":"Wrong"}`))
	// Non-numeric topic id.
	uplink.deliver(t, "indigo/devices/abc", []byte(`{"id":5,"name":"Odd Topic"}`))

	if len(notifier.created) != 0 {
		t.Errorf("created = %d, want 0", len(notifier.created))
	}
	if devs := registry.Devices(); len(devs) != 0 {
		t.Errorf("registry devices = %d, want 0", len(devs))
	}
}

func TestFeedDeleteUnknownDeviceIsSilent(t *testing.T) {
	_, uplink, _, notifier := newTestFeed(t)

	uplink.deliver(t, "indigo/devices/999", nil)

	if len(notifier.deleted) != 0 {
		t.Errorf("deleted = %d, want 0", len(notifier.deleted))
	}
}

func TestFeedVariableLifecycle(t *testing.T) {
	_, uplink, registry, notifier := newTestFeed(t)

	uplink.deliver(t, "indigo/variables/200", []byte(`{"id":200,"name":"house_mode","value":"home"}`))

	if len(notifier.varCreated) != 1 {
		t.Fatalf("varCreated = %d, want 1", len(notifier.varCreated))
	}

	uplink.deliver(t, "indigo/variables/200", []byte(`{"id":200,"name":"house_mode","value":"away"}`))

	if len(notifier.varUpdated) != 1 {
		t.Fatalf("varUpdated = %d, want 1", len(notifier.varUpdated))
	}
	if notifier.varUpdated[0][0].Value != "home" || notifier.varUpdated[0][1].Value != "away" {
		t.Errorf("update pair = %q -> %q, want home -> away",
			notifier.varUpdated[0][0].Value, notifier.varUpdated[0][1].Value)
	}

	uplink.deliver(t, "indigo/variables/200", nil)

	if len(notifier.varDeleted) != 1 {
		t.Fatalf("varDeleted = %d, want 1", len(notifier.varDeleted))
	}
	if _, ok := registry.Variable(200); ok {
		t.Error("variable still in registry after retraction")
	}
}

func TestFeedCommands(t *testing.T) {
	_, uplink, _, notifier := newTestFeed(t)

	uplink.deliver(t, "indigo/commands", []byte(`{"protocol":"insteon","address":"1A.2B.3C","scene":3,"func":"on"}`))

	if len(notifier.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(notifier.commands))
	}
	cmd := notifier.commands[0]
	if cmd.Address != "1A.2B.3C" || cmd.Scene != 3 || cmd.Func != "on" {
		t.Errorf("command = %+v", cmd)
	}

	// Malformed and addressless commands are dropped.
	uplink.deliver(t, "indigo/commands", []byte(`{broken`))
	uplink.deliver(t, "indigo/commands", []byte(`{"scene":1,"func":"on"}`))

	if len(notifier.commands) != 1 {
		t.Errorf("commands = %d, want 1", len(notifier.commands))
	}
}

func TestFeedStopUnsubscribes(t *testing.T) {
	feed, uplink, _, _ := newTestFeed(t)

	feed.Stop()

	uplink.mu.Lock()
	defer uplink.mu.Unlock()
	if len(uplink.unsubbed) != 3 {
		t.Errorf("unsubscribed topics = %d, want 3", len(uplink.unsubbed))
	}
}
