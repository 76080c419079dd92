// Package event holds the messages exchanged between devices, the hub and
// companion applications.
//
// An Event is either a DeviceEvent (raised by a device, always travelling
// device -> hub) or an AppEvent (carrying an explicit Direction). Values are
// immutable once built and are safe to share between goroutines.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Kind int

const (
	DeviceEventKind Kind = iota
	AppEventKind
)

func (k Kind) String() string {
	switch k {
	case DeviceEventKind:
		return "DEVICE_EVENT"
	case AppEventKind:
		return "APP_EVENT"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Direction int

const (
	ToApp Direction = iota
	ToDevice
)

func (d Direction) String() string {
	switch d {
	case ToApp:
		return "TO_APP"
	case ToDevice:
		return "TO_DEVICE"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts the textual forms produced by Direction.String as
// well as the short forms "app" and "device", in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "to_app", "app":
		return ToApp, nil
	case "to_device", "device":
		return ToDevice, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Event is implemented only by DeviceEvent and AppEvent.
type Event interface {
	Kind() Kind
	DeviceID() int
	Payload() string
	Timestamp() time.Time
	// Describe renders the event for logs. It is not meant to be parsed.
	Describe() string

	sealed()
}

type DeviceEvent struct {
	deviceID int
	payload  string
	at       time.Time
}

func NewDeviceEvent(deviceID int, payload string) DeviceEvent {
	return DeviceEvent{deviceID: deviceID, payload: payload, at: time.Now()}
}

func (e DeviceEvent) Kind() Kind           { return DeviceEventKind }
func (e DeviceEvent) DeviceID() int        { return e.deviceID }
func (e DeviceEvent) Payload() string      { return e.payload }
func (e DeviceEvent) Timestamp() time.Time { return e.at }
func (DeviceEvent) sealed()                {}

// Forward returns the app-facing copy of e that the hub broadcasts.
func (e DeviceEvent) Forward() AppEvent {
	return AppEvent{deviceID: e.deviceID, payload: e.payload, direction: ToApp, at: e.at}
}

func (e DeviceEvent) Describe() string {
	return fmt.Sprintf("{type: %s, deviceId: %d, data: %s}", DeviceEventKind, e.deviceID, e.payload)
}

func (e DeviceEvent) String() string { return e.Describe() }

type AppEvent struct {
	deviceID  int
	payload   string
	direction Direction
	at        time.Time
}

func NewAppEvent(deviceID int, payload string, direction Direction) AppEvent {
	return AppEvent{deviceID: deviceID, payload: payload, direction: direction, at: time.Now()}
}

func (e AppEvent) Kind() Kind           { return AppEventKind }
func (e AppEvent) DeviceID() int        { return e.deviceID }
func (e AppEvent) Payload() string      { return e.payload }
func (e AppEvent) Direction() Direction { return e.direction }
func (e AppEvent) Timestamp() time.Time { return e.at }
func (AppEvent) sealed()                {}

func (e AppEvent) Describe() string {
	return fmt.Sprintf("{type: %s, deviceId: %d, direction: %s, data: %s}",
		AppEventKind, e.deviceID, e.direction, e.payload)
}

func (e AppEvent) String() string { return e.Describe() }

// Wire is the JSON shape events take when they leave the process.
type Wire struct {
	Type      string `json:"type"`
	DeviceID  int    `json:"deviceId"`
	Direction string `json:"direction,omitempty"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func ToWire(e Event) Wire {
	w := Wire{
		Type:      e.Kind().String(),
		DeviceID:  e.DeviceID(),
		Data:      e.Payload(),
		Timestamp: e.Timestamp().UnixMilli(),
	}
	if ae, ok := e.(AppEvent); ok {
		w.Direction = ae.direction.String()
	}
	return w
}

func (e DeviceEvent) MarshalJSON() ([]byte, error) { return json.Marshal(ToWire(e)) }
func (e AppEvent) MarshalJSON() ([]byte, error)    { return json.Marshal(ToWire(e)) }
