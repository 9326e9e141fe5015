package insteon

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// Commander extends the base command surface with the Insteon-only
// operations composite entities need.
type Commander interface {
	entity.Commander
	SetLEDState(deviceID int64, index int, value bool, relay bool) error
	SendRawExtended(address string, data []byte) error
}

// Switch is a relay device with button event forwarding on its load
// scene.
type Switch struct {
	*entity.Switch
	events eventProcessor
}

func newSwitch(env entity.Env, dev *indigo.Device, overrides entity.Overrides, eventPrefix string) *Switch {
	s := &Switch{Switch: entity.NewSwitch(env, dev, overrides)}
	s.events = eventProcessor{src: s, eventPrefix: eventPrefix, scene: 1, log: env.Logger}
	return s
}

func (s *Switch) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	return s.events.ProcessCommand(cmd)
}

// Light is a dimmer device with button event forwarding.
type Light struct {
	*entity.Light
	events eventProcessor
}

func newLight(env entity.Env, dev *indigo.Device, overrides entity.Overrides, eventPrefix string) *Light {
	l := &Light{Light: entity.NewLight(env, dev, overrides)}
	l.events = eventProcessor{src: l, eventPrefix: eventPrefix, scene: 1, log: env.Logger}
	return l
}

func (l *Light) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	return l.events.ProcessCommand(cmd)
}

// Lock is a lock relay with button event forwarding.
type Lock struct {
	*entity.Lock
	events eventProcessor
}

func newLock(env entity.Env, dev *indigo.Device, overrides entity.Overrides, eventPrefix string) *Lock {
	l := &Lock{Lock: entity.NewLock(env, dev, overrides)}
	l.events = eventProcessor{src: l, eventPrefix: eventPrefix, scene: 1, log: env.Logger}
	return l
}

func (l *Lock) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	return l.events.ProcessCommand(cmd)
}

// KeypadButtonLight mirrors one KeypadLinc button LED as a light. The
// LED state lives on the parent device, so the entity follows the
// parent and drives the LED directly rather than the load.
type KeypadButtonLight struct {
	*entity.Switch

	commander Commander
	log       *logging.Logger
	parentID  int64
	button    int
	relay     bool
	events    eventProcessor
}

func newKeypadButtonLight(env entity.Env, commander Commander, dev *indigo.Device,
	overrides entity.Overrides, eventPrefix string, button int, label string, relay bool) *KeypadButtonLight {

	k := &KeypadButtonLight{
		Switch:    entity.NewSwitchForType(env, "light", dev, overrides),
		commander: commander,
		log:       env.Logger,
		parentID:  dev.ID,
		button:    button,
		relay:     relay,
	}
	k.SetIdentity(fmt.Sprintf("%d_%d", dev.ID, button),
		fmt.Sprintf("%s Button %s", dev.Name, label))
	k.SetTrackUpdatesFrom(fmt.Sprintf("%d", dev.ID))
	k.StateSender = k.sendLEDState
	k.CommandHandler = k.onCommand
	k.events = eventProcessor{src: k, eventPrefix: eventPrefix, scene: button, log: env.Logger}
	return k
}

func (k *KeypadButtonLight) ledOn(dev *indigo.Device) bool {
	return len(dev.LEDStates) >= k.button && dev.LEDStates[k.button-1]
}

func (k *KeypadButtonLight) sendLEDState(dev *indigo.Device) {
	payload := k.PayloadOff()
	if k.ledOn(dev) {
		payload = k.PayloadOn()
	}
	k.PublishState(payload)
}

func (k *KeypadButtonLight) onCommand(payload string) {
	on := k.ledOn(k.Device())
	var err error
	switch payload {
	case k.PayloadOn():
		if !on {
			err = k.commander.SetLEDState(k.parentID, k.button-1, true, k.relay)
		}
	case k.PayloadOff():
		if on {
			err = k.commander.SetLEDState(k.parentID, k.button-1, false, k.relay)
		}
	}
	if err != nil && k.log != nil {
		k.log.Error("setting keypad LED failed",
			"entity", k.MQTTName(), "button", k.button, "error", err)
	}
}

func (k *KeypadButtonLight) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	return k.events.ProcessCommand(cmd)
}

// ActivityTracker fires a device_automation trigger when its button
// sees the matching action on the wire. Unlike the other processors it
// publishes over MQTT and never produces a bridge event.
type ActivityTracker struct {
	*entity.Trigger

	button       int
	activityType string
}

func newActivityTracker(env entity.Env, dev *indigo.Device, overrides entity.Overrides,
	button int, label, activityType string) *ActivityTracker {

	id := fmt.Sprintf("%d_%d_%s", dev.ID, button, activityType)
	name := fmt.Sprintf("%s Button %s %s", dev.Name, label, activityType)
	t := &ActivityTracker{
		Trigger:      entity.NewTrigger(env, dev, overrides, id, name, activityType, "Button "+label),
		button:       button,
		activityType: activityType,
	}
	t.SetTrackUpdatesFrom(fmt.Sprintf("%d", dev.ID))
	return t
}

func (t *ActivityTracker) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	if cmd.Scene == t.button && Events[cmd.Func] == t.activityType {
		_ = t.Fire()
	}
	return "", nil, false
}

// Remote represents one RemoteLinc button. It publishes nothing; it
// exists to turn button presses and low battery broadcasts into
// events.
type Remote struct {
	*entity.Passive

	button int
	events eventProcessor
}

func newRemote(env entity.Env, dev *indigo.Device, overrides entity.Overrides,
	eventPrefix string, button int, label string) *Remote {

	id := fmt.Sprintf("%d", dev.ID)
	name := dev.Name + " Button"
	if label != "" {
		id = fmt.Sprintf("%d_%d", dev.ID, button)
		name = fmt.Sprintf("%s Button %s", dev.Name, label)
	}
	r := &Remote{
		Passive: entity.NewPassive(env, id, name, dev.Address, overrides),
		button:  button,
	}
	r.events = eventProcessor{src: r, eventPrefix: eventPrefix, scene: button, log: env.Logger}
	return r
}

func (r *Remote) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	if cmd.Scene == RemoteLowBatteryScene {
		return LowBatteryEvent, r.events.payload(cmd), true
	}
	return r.events.ProcessCommand(cmd)
}

// BatteryStateSensor reports a battery powered sensor as problematic
// when it has not phoned home within the configured window. Battery
// devices only talk when they have something to say, so staleness is
// evaluated on the refresh clock, not on device updates.
type BatteryStateSensor struct {
	*entity.BinarySensor

	noCommMinutes int
	now           func() time.Time
}

func newBatteryStateSensor(env entity.Env, dev *indigo.Device,
	overrides entity.Overrides, noCommMinutes int) *BatteryStateSensor {

	b := &BatteryStateSensor{
		BinarySensor:  entity.NewBinarySensor(env, dev, overrides),
		noCommMinutes: noCommMinutes,
		now:           time.Now,
	}
	b.DeviceClassDefault = "battery"
	b.SetIdentity(fmt.Sprintf("%d_battery", dev.ID), dev.Name+" Battery")
	b.SetTrackUpdatesFrom(fmt.Sprintf("%d", dev.ID))
	b.StateSender = b.sendStaleness
	return b
}

func (b *BatteryStateSensor) stale(dev *indigo.Device) bool {
	return b.now().Sub(dev.LastSuccessfulComm) > time.Duration(b.noCommMinutes)*time.Minute
}

func (b *BatteryStateSensor) sendStaleness(dev *indigo.Device) {
	payload := b.PayloadOff()
	if b.stale(dev) {
		payload = b.PayloadOn()
	}
	b.PublishState(payload)
}

// UpdateDevice keeps the snapshot fresh without publishing; the state
// only changes on the staleness clock.
func (b *BatteryStateSensor) UpdateDevice(orig, updated *indigo.Device) {
	_ = orig
	b.SetDevice(updated)
}

func (b *BatteryStateSensor) CheckForUpdate() {
	dev := b.Device()
	b.sendStaleness(dev)
	b.SendAttributes(dev)
}

// Backlight command frames. The first two bytes select the command,
// the rest pad the extended message to 16 bytes.
var (
	backlightOffCommand = []byte{0x20, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	backlightOnCommand = []byte{0x20, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// LEDBacklight exposes a KeypadLinc or SwitchLinc LED backlight as a
// synthetic light. The hardware cannot report backlight level, so the
// entity tracks its own last-commanded state.
type LEDBacklight struct {
	*entity.Light

	commander Commander
	address   string

	mu         sync.Mutex
	switchedOn bool
	level      int

	events eventProcessor
}

func newLEDBacklight(env entity.Env, commander Commander, dev *indigo.Device,
	overrides entity.Overrides, eventPrefix string) *LEDBacklight {

	b := &LEDBacklight{
		Light:      entity.NewLight(env, dev, overrides),
		commander:  commander,
		address:    dev.Address,
		switchedOn: true,
		level:      100,
	}
	b.SetIdentity(fmt.Sprintf("%d_backlight", dev.ID), dev.Name+" Backlight")
	b.SetTrackUpdatesFrom(fmt.Sprintf("%d", dev.ID))
	b.StateSender = b.sendSwitchState
	b.BrightnessSource = func(*indigo.Device) int {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.level
	}
	b.CommandHandler = b.onSwitchCommand
	b.BrightnessCommandHandler = b.onBrightnessCommand
	b.events = eventProcessor{src: b, eventPrefix: eventPrefix, scene: 1}
	return b
}

// Mechanism returns how the brightness frame is encoded: "kpl" for
// KeypadLinc, "swl" for SwitchLinc.
func (b *LEDBacklight) Mechanism() string {
	return b.RootOption("backlight_set_mechanism", "kpl")
}

// UpdateDevice is a no-op: the backlight has no reportable state.
func (b *LEDBacklight) UpdateDevice(orig, updated *indigo.Device) {
	_ = orig
	b.SetDevice(updated)
}

func (b *LEDBacklight) sendSwitchState(*indigo.Device) {
	b.mu.Lock()
	on := b.switchedOn
	b.mu.Unlock()
	payload := b.PayloadOff()
	if on {
		payload = b.PayloadOn()
	}
	b.PublishState(payload)
}

func (b *LEDBacklight) onSwitchCommand(payload string) {
	switch payload {
	case b.PayloadOn():
		if err := b.commander.SendRawExtended(b.address, backlightOnCommand); err != nil {
			return
		}
		b.mu.Lock()
		b.switchedOn = true
		b.mu.Unlock()
	case b.PayloadOff():
		if err := b.commander.SendRawExtended(b.address, backlightOffCommand); err != nil {
			return
		}
		b.mu.Lock()
		b.switchedOn = false
		b.mu.Unlock()
	default:
		return
	}
	b.sendSwitchState(nil)
}

func (b *LEDBacklight) onBrightnessCommand(payload string) {
	level, err := parseLevel(payload)
	if err != nil {
		return
	}
	if level > 0 {
		if err := b.commander.SendRawExtended(b.address, backlightOnCommand); err != nil {
			return
		}
		if err := b.setBrightness(level); err != nil {
			return
		}
		b.mu.Lock()
		b.level = level
		b.mu.Unlock()
	} else {
		if err := b.commander.SendRawExtended(b.address, backlightOffCommand); err != nil {
			return
		}
		b.mu.Lock()
		b.level = 0
		b.mu.Unlock()
	}
	b.SendBrightness(b.Device())
}

func (b *LEDBacklight) setBrightness(level int) error {
	var d1, d2, scaled byte
	switch b.Mechanism() {
	case "kpl":
		scaled = byte((level*(127-5))/100 + 5)
		d1, d2 = 0x00, 0x07
	case "swl":
		scaled = byte((level*(255-1))/100 + 1)
		d1, d2 = 0x01, 0x03
	default:
		return fmt.Errorf("unknown backlight mechanism %q", b.Mechanism())
	}
	frame := []byte{0x2E, 0x00, d1, d2, scaled, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	return b.commander.SendRawExtended(b.address, frame)
}

func (b *LEDBacklight) ProcessCommand(cmd indigo.Command) (string, map[string]any, bool) {
	return b.events.ProcessCommand(cmd)
}

func parseLevel(payload string) (int, error) {
	var level int
	_, err := fmt.Sscanf(payload, "%d", &level)
	return level, err
}
