package state

import (
	"sync"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

type ConnectionType int

const (
	WiFi ConnectionType = iota
	Zigbee
	ZWave
	Bluetooth
	Ethernet
)

func (c ConnectionType) String() string {
	switch c {
	case WiFi:
		return "wifi"
	case Zigbee:
		return "zigbee"
	case ZWave:
		return "zwave"
	case Bluetooth:
		return "bluetooth"
	case Ethernet:
		return "ethernet"
	}
	return "unknown"
}

type PowerSource int

const (
	Battery PowerSource = iota
	Mains
	Solar
	OtherPower
)

func (p PowerSource) String() string {
	switch p {
	case Battery:
		return "battery"
	case Mains:
		return "mains"
	case Solar:
		return "solar"
	}
	return "other"
}

// Dispatcher is the part of the hub devices and apps talk to.
type Dispatcher interface {
	Dispatch(ev event.Event)
}

// SmartDevice carries what every simulated device shares. Concrete devices
// embed it and add their own HandleEvent.
type SmartDevice struct {
	id          int
	name        string
	connections []ConnectionType
	power       []PowerSource
	logger      zerolog.Logger

	hubMu sync.RWMutex
	hub   Dispatcher
}

func (d *SmartDevice) init(id int, name string, logger zerolog.Logger, conn []ConnectionType, power []PowerSource) {
	d.id = id
	d.name = name
	d.connections = conn
	d.power = power
	d.logger = logger.With().Int("device_id", id).Str("device", name).Logger()
	d.logger.Debug().Msg("created smart device")
}

func (d *SmartDevice) ID() int                       { return d.id }
func (d *SmartDevice) Name() string                  { return d.name }
func (d *SmartDevice) Connections() []ConnectionType { return append([]ConnectionType(nil), d.connections...) }
func (d *SmartDevice) PowerSources() []PowerSource   { return append([]PowerSource(nil), d.power...) }

// Attach is called by the hub when the device is registered.
func (d *SmartDevice) Attach(hub Dispatcher) {
	d.hubMu.Lock()
	d.hub = hub
	d.hubMu.Unlock()
}

// Emit reports payload to the hub. Devices that were never registered drop it.
func (d *SmartDevice) Emit(payload string) {
	ev := event.NewDeviceEvent(d.id, payload)
	d.hubMu.RLock()
	hub := d.hub
	d.hubMu.RUnlock()
	if hub == nil {
		d.logger.Debug().Msgf("not attached to a hub, dropping %s", ev.Describe())
		return
	}
	d.logger.Debug().Msgf("sending event: %s", ev.Describe())
	hub.Dispatch(ev)
}
