package zwave

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
)

// BatteryStateSensor reports a Z-Wave node's battery percentage. The
// level only moves on the controller's polling clock, so updates keep
// the snapshot without publishing and the refresh sweep sends state.
type BatteryStateSensor struct {
	*entity.Sensor
}

func newBatteryStateSensor(env entity.Env, dev *indigo.Device, overrides entity.Overrides) *BatteryStateSensor {
	b := &BatteryStateSensor{Sensor: entity.NewSensor(env, dev, overrides)}
	b.DeviceClassDefault = "battery"
	b.UnitDefault = "%"
	b.SetIdentity(fmt.Sprintf("%d_battery", dev.ID), dev.Name+" Battery")
	b.SetTrackUpdatesFrom(fmt.Sprintf("%d", dev.ID))
	b.ValueSource = batteryLevelPayload
	return b
}

func batteryLevelPayload(dev *indigo.Device) string {
	if dev.BatteryLevel == nil {
		return ""
	}
	return strconv.Itoa(*dev.BatteryLevel)
}

// UpdateDevice keeps the snapshot fresh without publishing.
func (b *BatteryStateSensor) UpdateDevice(orig, updated *indigo.Device) {
	_ = orig
	b.SetDevice(updated)
}

func (b *BatteryStateSensor) CheckForUpdate() {
	dev := b.Device()
	b.PublishState(batteryLevelPayload(dev))
	b.SendAttributes(dev)
}
