package entity

import "github.com/nerrad567/indigo-hass-bridge/internal/indigo"

// Cover publishes an I/O device driving a garage door or similar as a
// Home Assistant cover. The door position reads from the first binary
// input; open, close and stop all pulse the first binary output
// because the typical opener uses a single momentary contact.
type Cover struct {
	CommandableDevice
}

// NewCover builds a cover entity for dev.
func NewCover(env Env, dev *indigo.Device, overrides Overrides) *Cover {
	c := &Cover{
		CommandableDevice: newCommandableDevice(env, "cover", dev, overrides),
	}
	c.StateSender = c.sendCoverState
	c.CommandHandler = c.onCoverCommand
	return c
}

// StateOpen returns the payload published when the cover is open.
func (c *Cover) StateOpen() string {
	return c.Option("state_open", "open")
}

// StateClosed returns the payload published when the cover is closed.
func (c *Cover) StateClosed() string {
	return c.Option("state_closed", "closed")
}

// PayloadOpen returns the open command payload.
func (c *Cover) PayloadOpen() string {
	return c.Option("payload_open", "OPEN")
}

// PayloadClose returns the close command payload.
func (c *Cover) PayloadClose() string {
	return c.Option("payload_close", "CLOSE")
}

// PayloadStop returns the stop command payload.
func (c *Cover) PayloadStop() string {
	return c.Option("payload_stop", "STOP")
}

func (c *Cover) Config() map[string]any {
	cfg := c.baseConfig()
	c.availabilityConfig(cfg)
	c.deviceConfig(cfg)
	c.commandableConfig(cfg)
	delete(cfg, "payload_on")
	delete(cfg, "payload_off")
	if class := c.Option("device_class", ""); class != "" {
		cfg["device_class"] = class
	}
	cfg["state_open"] = c.StateOpen()
	cfg["state_closed"] = c.StateClosed()
	cfg["payload_open"] = c.PayloadOpen()
	cfg["payload_close"] = c.PayloadClose()
	cfg["payload_stop"] = c.PayloadStop()
	return c.applyConfigOverrides(cfg)
}

func (c *Cover) Register() error {
	return c.registerCommandable(c.Config())
}

func (c *Cover) sendCoverState(dev *indigo.Device) {
	state := c.StateOpen()
	if len(dev.BinaryInputs) > 0 && dev.BinaryInputs[0] {
		state = c.StateClosed()
	}
	c.PublishState(state)
}

func (c *Cover) onCoverCommand(payload string) {
	switch payload {
	case c.PayloadOpen(), c.PayloadClose(), c.PayloadStop():
	default:
		return
	}
	if c.env.Commander == nil {
		c.logError("cover command with no commander", "entity", c.MQTTName())
		return
	}
	if err := c.env.Commander.SetBinaryOutput(c.DeviceID(), 0, true); err != nil {
		c.logError("pulsing cover output failed",
			"entity", c.MQTTName(), "payload", payload, "error", err)
	}
}
