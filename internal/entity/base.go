package entity

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Base provides discovery config publication and retraction. It is the
// bottom layer of the entity composition stack; every entity embeds it
// directly or through a higher layer.
type Base struct {
	env       Env
	hassType  string
	overrides Overrides

	mu      sync.Mutex
	id      string
	rawName string
	address string
	tracks  []string

	registered     bool
	haEntityID     string
	haFriendlyName string
}

func newBase(env Env, hassType, id, name, address string, overrides Overrides) Base {
	return Base{
		env:       env,
		hassType:  hassType,
		overrides: overrides,
		id:        id,
		rawName:   name,
		address:   address,
		tracks:    []string{id},
	}
}

// ID returns the Indigo object ID backing this entity. Composite
// entities use a derived ID such as "123456_3".
func (b *Base) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Name returns the display name with any customization applied.
func (b *Base) Name() string {
	return b.overriddenName()
}

// MQTTName returns the sanitized name used in topic paths.
func (b *Base) MQTTName() string {
	return SanitizeName(b.overriddenName())
}

// HassType returns the Home Assistant component this entity publishes
// under, such as "light" or "binary_sensor".
func (b *Base) HassType() string {
	return b.hassType
}

// TrackUpdatesFrom returns the Indigo IDs whose updates this entity
// consumes.
func (b *Base) TrackUpdatesFrom() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.tracks))
	copy(out, b.tracks)
	return out
}

// SetIdentity replaces the entity ID and name. Composite entities call
// this right after construction, before first registration.
func (b *Base) SetIdentity(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = id
	b.rawName = name
}

// SetTrackUpdatesFrom replaces the set of followed Indigo IDs.
func (b *Base) SetTrackUpdatesFrom(ids ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracks = append([]string(nil), ids...)
}

// SetHAEntity records the matched Home Assistant entity identity.
func (b *Base) SetHAEntity(entityID, friendlyName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.haEntityID = entityID
	b.haFriendlyName = friendlyName
}

// HAEntityID returns the matched Home Assistant entity_id, or "" when
// no match has been recorded yet.
func (b *Base) HAEntityID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.haEntityID
}

// HAFriendlyName returns the matched Home Assistant friendly name.
func (b *Base) HAFriendlyName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.haFriendlyName
}

// overriddenName resolves the name override. The override template may
// reference the entity fields except name and mqtt_name, which derive
// from it.
func (b *Base) overriddenName() string {
	b.mu.Lock()
	raw := b.rawName
	b.mu.Unlock()

	partial := map[string]string{
		"discovery_prefix": b.env.DiscoveryPrefix,
		"hass_type":        b.hassType,
		"id":               b.ID(),
		"address":          b.Address(),
	}
	name := raw
	if v, ok := b.overrides.ConfigVar("name"); ok {
		name = coerceString(v)
	}
	return Render(name, partial)
}

// Address returns the hardware address of the backing Indigo object.
func (b *Base) Address() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.address
}

// Fields returns the substitution map for {d[...]} template
// references.
func (b *Base) Fields() map[string]string {
	name := b.overriddenName()
	return map[string]string{
		"discovery_prefix": b.env.DiscoveryPrefix,
		"hass_type":        b.hassType,
		"mqtt_name":        SanitizeName(name),
		"name":             name,
		"id":               b.ID(),
		"address":          b.Address(),
	}
}

func (b *Base) topics() Topics {
	return Topics{Prefix: b.env.DiscoveryPrefix}
}

// Option resolves a config_vars customization for key, rendering
// templates in both the default and the override.
func (b *Base) Option(key, def string) string {
	fields := b.Fields()
	val := Render(def, fields)
	if v, ok := b.overrides.ConfigVar(key); ok {
		val = coerceString(v)
	}
	return Render(val, fields)
}

// RootOption resolves a root-level customization for key.
func (b *Base) RootOption(key, def string) string {
	fields := b.Fields()
	val := Render(def, fields)
	if v, ok := b.overrides.RootVar(key); ok {
		val = coerceString(v)
	}
	return Render(val, fields)
}

// IntOption resolves a config_vars customization as an integer.
func (b *Base) IntOption(key string, def int) int {
	if v, ok := b.overrides.ConfigVar(key); ok {
		return coerceInt(v, def)
	}
	return def
}

// BoolOption resolves a config_vars customization as a boolean.
func (b *Base) BoolOption(key string, def bool) bool {
	if v, ok := b.overrides.ConfigVar(key); ok {
		return coerceBool(v)
	}
	return def
}

// OptionValue returns the raw config_vars override for key, untyped.
func (b *Base) OptionValue(key string) (any, bool) {
	return b.overrides.ConfigVar(key)
}

// UniqueID returns the Home Assistant unique_id for this entity.
func (b *Base) UniqueID() string {
	return b.Option("unique_id", "indigo_mqtt_{d[mqtt_name]}")
}

// QoS returns the default QoS applied to this entity's payload
// topics.
func (b *Base) QoS() byte {
	return byte(b.IntOption("qos", 0))
}

// ConfigTopic returns the discovery config topic.
func (b *Base) ConfigTopic() string {
	return b.Option("config_topic", b.topics().Config(b.hassType, "{d[mqtt_name]}"))
}

func (b *Base) configTopicQoS() byte {
	return byte(b.IntOption("config_topic_qos", 0))
}

func (b *Base) configTopicRetain() bool {
	return b.BoolOption("config_topic_retain", true)
}

// baseConfig returns the bottom-layer discovery keys.
func (b *Base) baseConfig() map[string]any {
	return map[string]any{
		"name":      b.Name(),
		"unique_id": b.UniqueID(),
		"qos":       int(b.QoS()),
	}
}

// applyConfigOverrides merges remaining config_vars overrides into the
// assembled payload so keys without dedicated accessors still reach
// Home Assistant.
func (b *Base) applyConfigOverrides(cfg map[string]any) map[string]any {
	fields := b.Fields()
	for key, v := range b.overrides.ConfigVars {
		if _, handled := cfg[key]; handled {
			continue
		}
		switch key {
		case "config_topic", "config_topic_qos", "config_topic_retain",
			"state_topic_qos", "state_topic_retain",
			"availability_topic_qos", "availability_topic_retain",
			"json_attributes_topic_qos", "json_attributes_topic_retain":
			continue
		}
		if s, ok := v.(string); ok {
			cfg[key] = Render(s, fields)
			continue
		}
		cfg[key] = v
	}
	return cfg
}

// publishConfig marshals and publishes the discovery payload.
func (b *Base) publishConfig(cfg map[string]any) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding discovery config for %s: %w", b.MQTTName(), err)
	}
	topic := b.ConfigTopic()
	b.logDebug("publishing discovery config",
		"entity", b.MQTTName(), "topic", topic)
	if err := b.env.Publisher.Publish(topic, payload, b.configTopicQoS(), b.configTopicRetain()); err != nil {
		return fmt.Errorf("publishing discovery config to %s: %w", topic, err)
	}
	return nil
}

// retract clears a retained topic by publishing an empty retained
// payload.
func (b *Base) retract(topic string, qos byte) error {
	if err := b.env.Publisher.Publish(topic, nil, qos, true); err != nil {
		return fmt.Errorf("retracting %s: %w", topic, err)
	}
	return nil
}

func (b *Base) retractConfig() error {
	b.logDebug("retracting discovery config",
		"entity", b.MQTTName(), "topic", b.ConfigTopic())
	return b.retract(b.ConfigTopic(), b.configTopicQoS())
}

// Cleanup retracts the discovery config. Higher layers widen this to
// cover their own topics.
func (b *Base) Cleanup() error {
	return b.retractConfig()
}

// Shutdown is a no-op at the base layer; entities without an
// availability topic have nothing to mark offline.
func (b *Base) Shutdown() error {
	return nil
}

func (b *Base) markRegistered() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = true
}

// consumeRegistered reports whether the entity was registered and
// clears the flag, so offline is published exactly once per
// registration.
func (b *Base) consumeRegistered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	was := b.registered
	b.registered = false
	return was
}

func (b *Base) logDebug(msg string, args ...any) {
	if b.env.Logger != nil {
		b.env.Logger.Debug(msg, args...)
	}
}

func (b *Base) logError(msg string, args ...any) {
	if b.env.Logger != nil {
		b.env.Logger.Error(msg, args...)
	}
}

// Available layers a per-entity availability topic over Base. The
// entity is marked online on registration and offline on shutdown, and
// the discovery config points Home Assistant at the topic.
type Available struct {
	Base
}

func newAvailable(env Env, hassType, id, name, address string, overrides Overrides) Available {
	return Available{Base: newBase(env, hassType, id, name, address, overrides)}
}

// AvailabilityTopic returns the per-entity availability topic.
func (a *Available) AvailabilityTopic() string {
	return a.Option("availability_topic", a.topics().Availability(a.hassType, "{d[mqtt_name]}"))
}

func (a *Available) availabilityQoS() byte {
	return byte(a.IntOption("availability_topic_qos", 0))
}

func (a *Available) availabilityRetain() bool {
	return a.BoolOption("availability_topic_retain", true)
}

// availabilityConfig widens cfg with the availability block.
func (a *Available) availabilityConfig(cfg map[string]any) map[string]any {
	cfg["availability"] = []map[string]any{{
		"topic":                 a.AvailabilityTopic(),
		"payload_available":     a.Option("payload_available", "online"),
		"payload_not_available": a.Option("payload_not_available", "offline"),
	}}
	return cfg
}

// publishAvailable marks the entity online.
func (a *Available) publishAvailable() error {
	payload := a.Option("payload_available", "online")
	if err := a.env.Publisher.Publish(a.AvailabilityTopic(), []byte(payload), a.availabilityQoS(), a.availabilityRetain()); err != nil {
		return fmt.Errorf("publishing availability for %s: %w", a.MQTTName(), err)
	}
	return nil
}

func (a *Available) publishNotAvailable() error {
	payload := a.Option("payload_not_available", "offline")
	if err := a.env.Publisher.Publish(a.AvailabilityTopic(), []byte(payload), a.availabilityQoS(), a.availabilityRetain()); err != nil {
		return fmt.Errorf("publishing offline for %s: %w", a.MQTTName(), err)
	}
	return nil
}

// Shutdown publishes offline once per registration.
func (a *Available) Shutdown() error {
	if !a.consumeRegistered() {
		return nil
	}
	a.logDebug("marking entity offline", "entity", a.MQTTName())
	return a.publishNotAvailable()
}

func (a *Available) retractAvailability() error {
	return a.retract(a.AvailabilityTopic(), a.availabilityQoS())
}

// Cleanup retracts availability and the discovery config.
func (a *Available) Cleanup() error {
	if err := a.retractAvailability(); err != nil {
		return err
	}
	return a.Base.Cleanup()
}
