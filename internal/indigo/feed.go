package indigo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// Uplink is the MQTT surface the feed and commander use. The
// infrastructure client satisfies it through a thin adapter in main.
type Uplink interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Notifier receives topology and command callbacks as the feed applies
// uplink messages to the registry. The bridge controller implements it.
type Notifier interface {
	DeviceCreated(dev *Device)
	DeviceUpdated(orig, updated *Device)
	DeviceDeleted(dev *Device)
	VariableCreated(v *Variable)
	VariableUpdated(orig, updated *Variable)
	VariableDeleted(v *Variable)
	ProcessCommand(ctx context.Context, cmd Command)
}

// commandTimeout bounds event forwarding triggered by one inbound
// protocol command.
const commandTimeout = 10 * time.Second

// FeedDeps holds the dependencies required by the feed.
type FeedDeps struct {
	Uplink      Uplink
	Registry    *Registry
	Notifier    Notifier
	TopicPrefix string
	QoS         byte
	Logger      *logging.Logger
}

// Feed consumes the Indigo-side uplink: retained device and variable
// snapshots plus observed protocol commands. It keeps the registry
// current and notifies the controller of every change.
//
// Device snapshots arrive on {prefix}/devices/{id}, variables on
// {prefix}/variables/{id}. An empty retained payload retracts the
// snapshot and is treated as a deletion. Protocol commands arrive as
// JSON on {prefix}/commands.
type Feed struct {
	uplink   Uplink
	registry *Registry
	notifier Notifier
	prefix   string
	qos      byte
	logger   *logging.Logger
}

// NewFeed creates a feed. It does not subscribe until Start is called.
func NewFeed(deps FeedDeps) (*Feed, error) {
	if deps.Uplink == nil {
		return nil, fmt.Errorf("indigo: uplink is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("indigo: registry is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("indigo: notifier is required")
	}
	if deps.TopicPrefix == "" {
		return nil, fmt.Errorf("indigo: topic prefix is required")
	}

	return &Feed{
		uplink:   deps.Uplink,
		registry: deps.Registry,
		notifier: deps.Notifier,
		prefix:   strings.TrimRight(deps.TopicPrefix, "/"),
		qos:      deps.QoS,
		logger:   deps.Logger,
	}, nil
}

// Start subscribes to the uplink topics. The retained snapshots replay
// immediately, populating the registry before the first rebuild
// settles.
func (f *Feed) Start() error {
	if err := f.uplink.Subscribe(f.prefix+"/devices/+", f.qos, f.handleDevice); err != nil {
		return fmt.Errorf("subscribing to device snapshots: %w", err)
	}
	if err := f.uplink.Subscribe(f.prefix+"/variables/+", f.qos, f.handleVariable); err != nil {
		return fmt.Errorf("subscribing to variable snapshots: %w", err)
	}
	if err := f.uplink.Subscribe(f.prefix+"/commands", f.qos, f.handleCommand); err != nil {
		return fmt.Errorf("subscribing to protocol commands: %w", err)
	}
	return nil
}

// Stop unsubscribes from the uplink topics.
func (f *Feed) Stop() {
	for _, topic := range []string{
		f.prefix + "/devices/+",
		f.prefix + "/variables/+",
		f.prefix + "/commands",
	} {
		if err := f.uplink.Unsubscribe(topic); err != nil {
			f.logWarn("failed to unsubscribe", "topic", topic, "error", err)
		}
	}
}

func (f *Feed) handleDevice(topic string, payload []byte) {
	id, ok := f.topicID(topic)
	if !ok {
		return
	}

	if len(payload) == 0 {
		if prev := f.registry.RemoveDevice(id); prev != nil {
			f.logInfo("device removed", "id", id, "name", prev.Name)
			f.notifier.DeviceDeleted(prev)
		}
		return
	}

	var dev Device
	if err := json.Unmarshal(payload, &dev); err != nil {
		f.logWarn("discarding malformed device snapshot", "topic", topic, "error", err)
		return
	}
	if dev.ID == 0 {
		dev.ID = id
	}
	if dev.ID != id {
		f.logWarn("device snapshot id does not match topic", "topic", topic, "id", dev.ID)
		return
	}

	prev := f.registry.UpsertDevice(&dev)
	if prev == nil {
		f.logInfo("device added", "id", dev.ID, "name", dev.Name)
		f.notifier.DeviceCreated(&dev)
		return
	}
	f.notifier.DeviceUpdated(prev, &dev)
}

func (f *Feed) handleVariable(topic string, payload []byte) {
	id, ok := f.topicID(topic)
	if !ok {
		return
	}

	if len(payload) == 0 {
		if prev := f.registry.RemoveVariable(id); prev != nil {
			f.logInfo("variable removed", "id", id, "name", prev.Name)
			f.notifier.VariableDeleted(prev)
		}
		return
	}

	var v Variable
	if err := json.Unmarshal(payload, &v); err != nil {
		f.logWarn("discarding malformed variable snapshot", "topic", topic, "error", err)
		return
	}
	if v.ID == 0 {
		v.ID = id
	}
	if v.ID != id {
		f.logWarn("variable snapshot id does not match topic", "topic", topic, "id", v.ID)
		return
	}

	prev := f.registry.UpsertVariable(&v)
	if prev == nil {
		f.logInfo("variable added", "id", v.ID, "name", v.Name)
		f.notifier.VariableCreated(&v)
		return
	}
	f.notifier.VariableUpdated(prev, &v)
}

func (f *Feed) handleCommand(topic string, payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		f.logWarn("discarding malformed protocol command", "topic", topic, "error", err)
		return
	}
	if cmd.Address == "" {
		f.logWarn("discarding protocol command without address", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	f.notifier.ProcessCommand(ctx, cmd)
}

// topicID extracts the numeric id from the final topic segment.
func (f *Feed) topicID(topic string) (int64, bool) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return 0, false
	}
	id, err := strconv.ParseInt(topic[idx+1:], 10, 64)
	if err != nil || id == 0 {
		f.logWarn("ignoring uplink topic with non-numeric id", "topic", topic)
		return 0, false
	}
	return id, true
}

func (f *Feed) logInfo(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Info(msg, args...)
	}
}

func (f *Feed) logWarn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
