package entity

import "github.com/nerrad567/indigo-hass-bridge/internal/indigo"

// Lock publishes a lock device as a Home Assistant lock. Indigo models
// locks as relays where on means locked.
type Lock struct {
	CommandableDevice
}

// NewLock builds a lock entity for dev.
func NewLock(env Env, dev *indigo.Device, overrides Overrides) *Lock {
	l := &Lock{
		CommandableDevice: newCommandableDevice(env, "lock", dev, overrides),
	}
	l.StateSender = l.sendLockState
	l.CommandHandler = l.onLockCommand
	return l
}

// StateLocked returns the payload published when locked.
func (l *Lock) StateLocked() string {
	return l.Option("state_locked", "LOCKED")
}

// StateUnlocked returns the payload published when unlocked.
func (l *Lock) StateUnlocked() string {
	return l.Option("state_unlocked", "UNLOCKED")
}

// PayloadLock returns the lock command payload.
func (l *Lock) PayloadLock() string {
	return l.Option("payload_lock", "LOCK")
}

// PayloadUnlock returns the unlock command payload.
func (l *Lock) PayloadUnlock() string {
	return l.Option("payload_unlock", "UNLOCK")
}

func (l *Lock) Config() map[string]any {
	cfg := l.baseConfig()
	l.availabilityConfig(cfg)
	l.deviceConfig(cfg)
	l.commandableConfig(cfg)
	delete(cfg, "payload_on")
	delete(cfg, "payload_off")
	if class := l.Option("device_class", ""); class != "" {
		cfg["device_class"] = class
	}
	cfg["state_locked"] = l.StateLocked()
	cfg["state_unlocked"] = l.StateUnlocked()
	cfg["payload_lock"] = l.PayloadLock()
	cfg["payload_unlock"] = l.PayloadUnlock()
	return l.applyConfigOverrides(cfg)
}

func (l *Lock) Register() error {
	return l.registerCommandable(l.Config())
}

func (l *Lock) sendLockState(dev *indigo.Device) {
	state := l.StateUnlocked()
	if dev.OnState {
		state = l.StateLocked()
	}
	l.PublishState(state)
}

func (l *Lock) onLockCommand(payload string) {
	if l.env.Commander == nil {
		l.logError("lock command with no commander", "entity", l.MQTTName())
		return
	}
	dev := l.Device()
	var err error
	switch payload {
	case l.PayloadLock():
		if !dev.OnState {
			err = l.env.Commander.Lock(dev.ID)
		}
	case l.PayloadUnlock():
		if dev.OnState {
			err = l.env.Commander.Unlock(dev.ID)
		}
	}
	if err != nil {
		l.logError("lock command failed",
			"entity", l.MQTTName(), "payload", payload, "error", err)
	}
}
