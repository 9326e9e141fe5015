package entity

import (
	"errors"

	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// Sentinel errors for entity operations.
var (
	// ErrNotConnected indicates the MQTT session is down and the
	// operation cannot be delivered.
	ErrNotConnected = errors.New("entity: mqtt not connected")

	// ErrNoCommander indicates a command arrived for an entity whose
	// environment has no command executor wired.
	ErrNoCommander = errors.New("entity: no commander configured")
)

// Publisher is the MQTT surface entities need. The infrastructure
// client satisfies it through a small adapter in package main because
// its Subscribe takes a named handler type.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Commander executes device actions against the Indigo controller.
// Entities translate inbound MQTT command payloads into these calls.
type Commander interface {
	TurnOn(deviceID int64) error
	TurnOff(deviceID int64) error
	SetBrightness(deviceID int64, level int) error
	SetSpeedIndex(deviceID int64, index int) error
	Lock(deviceID int64) error
	Unlock(deviceID int64) error
	SetBinaryOutput(deviceID int64, index int, value bool) error
}

// Env carries the shared dependencies every entity needs. Generators
// build one Env at startup and hand it to each entity they construct.
type Env struct {
	Publisher       Publisher
	Commander       Commander
	Logger          *logging.Logger
	DiscoveryPrefix string
}

// Entity is the behaviour the bridge controller relies on for every
// published Home Assistant entity.
type Entity interface {
	ID() string
	Name() string
	MQTTName() string
	HassType() string

	// TrackUpdatesFrom names the Indigo object IDs whose updates this
	// entity consumes. For most entities that is just its own ID;
	// composite entities (keypad buttons, battery sensors) follow
	// their parent device.
	TrackUpdatesFrom() []string

	// Config returns the discovery payload exactly as it would be
	// published, with all overrides and templates applied.
	Config() map[string]any

	// Register publishes the discovery config and current state and
	// subscribes any command topics. Safe to call again after an MQTT
	// reconnect.
	Register() error

	// Cleanup retracts every retained topic the entity owns, removing
	// it from Home Assistant.
	Cleanup() error

	// Shutdown marks the entity unavailable. Publishes offline at most
	// once per registration.
	Shutdown() error

	// SetHAEntity records the Home Assistant entity_id and friendly
	// name discovered by matching attributes against the HA state
	// machine.
	SetHAEntity(entityID, friendlyName string)
	HAEntityID() string
}

// DeviceUpdater is implemented by entities whose state derives from an
// Indigo device.
type DeviceUpdater interface {
	UpdateDevice(orig, updated *indigo.Device)
}

// VariableUpdater is implemented by entities whose state derives from
// an Indigo variable.
type VariableUpdater interface {
	UpdateVariable(orig, updated *indigo.Variable)
}

// CommandProcessor translates raw protocol commands into bridge events
// for forwarding to the Home Assistant event bus.
type CommandProcessor interface {
	// ProcessCommand returns the event name and payload for cmd, or
	// ok=false when the command is not one this processor handles.
	ProcessCommand(cmd indigo.Command) (event string, payload map[string]any, ok bool)
}

// TimedUpdateChecker is implemented by entities that must re-evaluate
// state on a clock rather than on device updates, such as battery
// staleness sensors.
type TimedUpdateChecker interface {
	CheckForUpdate()
}
