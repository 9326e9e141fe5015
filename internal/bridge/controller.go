package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/hass"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// Registry is the upstream device and variable source. The bridge
// re-reads it on every rebuild; it never caches devices across
// topology changes.
type Registry interface {
	Devices() []*indigo.Device
	Variables() []*indigo.Variable
}

// DeviceGenerator produces entities for one upstream device.
type DeviceGenerator interface {
	Generate(dev *indigo.Device) map[string]entity.Entity
}

// VariableGenerator produces entities for one upstream variable.
type VariableGenerator interface {
	Generate(v *indigo.Variable) map[string]entity.Entity
}

// HAClient is the Home Assistant REST surface the controller uses.
type HAClient interface {
	PostEvent(ctx context.Context, event string, payload map[string]any) error
	GetStates(ctx context.Context) ([]hass.State, error)
}

// EventRecorder logs forwarded protocol events. Optional.
type EventRecorder interface {
	RecordEvent(event, senderID string)
}

// addressed is implemented by entities bound to a physical address.
type addressed interface {
	Address() string
}

// Deps carries the controller's collaborators.
type Deps struct {
	Registry           Registry
	DeviceGenerators   []DeviceGenerator
	VariableGenerators []VariableGenerator
	HA                 HAClient
	Recorder           EventRecorder
	Logger             *logging.Logger
}

// Controller owns the mirrored entity set. All map mutations happen
// behind one mutex; rebuilds construct new maps off to the side and
// swap them in, so concurrent readers see either the old or the new
// set, never a partial one.
type Controller struct {
	deps Deps

	mu        sync.Mutex
	entities  map[string]entity.Entity
	followers map[string][]entity.Entity
	addresses map[string][]entity.CommandProcessor
	connected bool

	stopOnce sync.Once
}

// New creates a Controller. Call Rebuild to populate the entity set
// and HandleConnect once the MQTT session is up.
func New(deps Deps) *Controller {
	return &Controller{
		deps:      deps,
		entities:  map[string]entity.Entity{},
		followers: map[string][]entity.Entity{},
		addresses: map[string][]entity.CommandProcessor{},
	}
}

// Rebuild regenerates the entity set from the registry. Entities whose
// backing device is gone are retracted; surviving and new entities are
// (re)registered when connected. Rebuilding an unchanged topology is
// idempotent.
func (c *Controller) Rebuild() {
	fresh := map[string]entity.Entity{}
	for _, dev := range c.deps.Registry.Devices() {
		for _, gen := range c.deps.DeviceGenerators {
			for id, e := range gen.Generate(dev) {
				fresh[id] = e
			}
		}
	}
	for _, v := range c.deps.Registry.Variables() {
		for _, gen := range c.deps.VariableGenerators {
			for id, e := range gen.Generate(v) {
				fresh[id] = e
			}
		}
	}

	followers := map[string][]entity.Entity{}
	addresses := map[string][]entity.CommandProcessor{}
	for _, e := range fresh {
		for _, upstream := range e.TrackUpdatesFrom() {
			followers[upstream] = append(followers[upstream], e)
		}
		proc, isProc := e.(entity.CommandProcessor)
		if !isProc {
			continue
		}
		if addr, ok := e.(addressed); ok && addr.Address() != "" {
			addresses[addr.Address()] = append(addresses[addr.Address()], proc)
		}
	}

	c.mu.Lock()
	var removed []entity.Entity
	for id, old := range c.entities {
		if _, ok := fresh[id]; !ok {
			removed = append(removed, old)
		}
	}
	c.entities = fresh
	c.followers = followers
	c.addresses = addresses
	connected := c.connected
	c.mu.Unlock()

	for _, old := range removed {
		if err := old.Cleanup(); err != nil {
			c.logError("retracting removed entity", "entity", old.MQTTName(), "error", err)
		}
	}
	c.logInfo("entity set rebuilt", "entities", len(fresh), "removed", len(removed))

	if connected {
		c.registerAll()
	}
}

// HandleConnect marks the bridge connected and registers every entity.
// Wire it to the MQTT client's connect callback; it also runs on every
// reconnect, which re-publishes configs and re-subscribes commands.
func (c *Controller) HandleConnect() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.logInfo("mqtt session established, registering entities")
	c.registerAll()
}

// HandleDisconnect marks the bridge disconnected. The broker's last
// will flips the bridge status topic; per-entity availability is left
// to expire with it since nothing can be published without a session.
func (c *Controller) HandleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if err != nil {
		c.logWarn("mqtt session lost", "error", err)
	}
}

// Stop shuts down every entity, publishing offline on each
// availability topic exactly once. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		for _, e := range c.snapshot() {
			if err := e.Shutdown(); err != nil {
				c.logDebug("entity shutdown", "entity", e.MQTTName(), "error", err)
			}
		}
		c.logInfo("bridge stopped")
	})
}

// DeviceCreated handles a new upstream device.
func (c *Controller) DeviceCreated(dev *indigo.Device) {
	c.logDebug("device created", "id", dev.ID, "name", dev.Name)
	c.Rebuild()
}

// DeviceDeleted handles an upstream device removal.
func (c *Controller) DeviceDeleted(dev *indigo.Device) {
	c.logDebug("device deleted", "id", dev.ID, "name", dev.Name)
	c.Rebuild()
}

// DeviceUpdated fans a state change out to every entity following the
// device. The entity set is not rebuilt.
func (c *Controller) DeviceUpdated(orig, updated *indigo.Device) {
	for _, e := range c.followersOf(updated.IDString()) {
		if u, ok := e.(entity.DeviceUpdater); ok {
			u.UpdateDevice(orig, updated)
		}
	}
}

// VariableCreated handles a new upstream variable.
func (c *Controller) VariableCreated(v *indigo.Variable) {
	c.logDebug("variable created", "id", v.ID, "name", v.Name)
	c.Rebuild()
}

// VariableDeleted handles an upstream variable removal.
func (c *Controller) VariableDeleted(v *indigo.Variable) {
	c.logDebug("variable deleted", "id", v.ID, "name", v.Name)
	c.Rebuild()
}

// VariableUpdated fans a value change out to every entity following
// the variable.
func (c *Controller) VariableUpdated(orig, updated *indigo.Variable) {
	for _, e := range c.followersOf(updated.IDString()) {
		if u, ok := e.(entity.VariableUpdater); ok {
			u.UpdateVariable(orig, updated)
		}
	}
}

// ProcessCommand routes an inbound protocol command to every processor
// registered for its address and forwards the resulting events to the
// Home Assistant event bus. Delivery failures are logged, not retried.
func (c *Controller) ProcessCommand(ctx context.Context, cmd indigo.Command) {
	c.mu.Lock()
	procs := append([]entity.CommandProcessor(nil), c.addresses[cmd.Address]...)
	c.mu.Unlock()

	for _, p := range procs {
		event, payload, ok := p.ProcessCommand(cmd)
		if !ok {
			continue
		}
		c.logDebug("forwarding event", "event", event, "address", cmd.Address, "scene", cmd.Scene)
		if c.deps.HA != nil {
			if err := c.deps.HA.PostEvent(ctx, event, payload); err != nil {
				c.logWarn("event delivery failed", "event", event, "error", err)
			}
		}
		if c.deps.Recorder != nil {
			sender, _ := payload["sender_id"].(string)
			c.deps.Recorder.RecordEvent(event, sender)
		}
	}
}

// RefreshHAInfo pulls the Home Assistant state registry and records
// the entity_id and friendly name for every entity the bridge owns.
func (c *Controller) RefreshHAInfo(ctx context.Context) {
	if c.deps.HA == nil {
		return
	}
	states, err := c.deps.HA.GetStates(ctx)
	if err != nil {
		c.logWarn("state registry refresh failed", "error", err)
		return
	}

	byIndigoID := map[string]hass.State{}
	for _, st := range states {
		if id := st.IndigoID(); id != "" {
			byIndigoID[id] = st
		}
	}
	for _, e := range c.snapshot() {
		if st, ok := byIndigoID[e.ID()]; ok {
			e.SetHAEntity(st.EntityID, st.FriendlyName())
		}
	}
}

// CheckTimedUpdates runs every entity's timed check, such as battery
// staleness. Skipped while disconnected.
func (c *Controller) CheckTimedUpdates() {
	if !c.Connected() {
		return
	}
	for _, e := range c.snapshot() {
		if t, ok := e.(entity.TimedUpdateChecker); ok {
			t.CheckForUpdate()
		}
	}
}

// Run drives the periodic loop until ctx is cancelled: Home Assistant
// info refresh and timed update checks every interval.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Connected() {
				continue
			}
			c.RefreshHAInfo(ctx)
			c.CheckTimedUpdates()
		}
	}
}

// Connected reports whether the MQTT session is up.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// EntityInfo is a point-in-time view of one mirrored entity.
type EntityInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MQTTName   string `json:"mqtt_name"`
	HassType   string `json:"hass_type"`
	HAEntityID string `json:"ha_entity_id,omitempty"`
}

// Entities returns a snapshot of the mirrored entity set for the
// status API.
func (c *Controller) Entities() []EntityInfo {
	snapshot := c.snapshot()
	out := make([]EntityInfo, 0, len(snapshot))
	for _, e := range snapshot {
		out = append(out, EntityInfo{
			ID:         e.ID(),
			Name:       e.Name(),
			MQTTName:   e.MQTTName(),
			HassType:   e.HassType(),
			HAEntityID: e.HAEntityID(),
		})
	}
	return out
}

// EntityCount returns the size of the mirrored entity set.
func (c *Controller) EntityCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entities)
}

func (c *Controller) registerAll() {
	for _, e := range c.snapshot() {
		if err := e.Register(); err != nil {
			c.logError("registering entity", "entity", e.MQTTName(), "error", err)
		}
	}
}

func (c *Controller) snapshot() []entity.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	return out
}

func (c *Controller) followersOf(id string) []entity.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Entity(nil), c.followers[id]...)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Warn(msg, args...)
	}
}

func (c *Controller) logError(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Error(msg, args...)
	}
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Debug(msg, args...)
	}
}
