package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedCommand = errors.New("malformed command")

type command struct {
	DeviceID *int   `json:"deviceId"`
	Data     string `json:"data"`
}

// ParseCommand decodes a command sent by an application, e.g.
// {"deviceId":1,"data":"TOGGLE"}, into a ToDevice AppEvent. fallbackID is
// used when the body carries no device id (callers that know the target from
// the transport, such as an MQTT topic, pass it here; others pass -1).
func ParseCommand(body []byte, fallbackID int) (AppEvent, error) {
	var c command
	if err := json.Unmarshal(body, &c); err != nil {
		return AppEvent{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	id := fallbackID
	if c.DeviceID != nil {
		id = *c.DeviceID
	}
	if id < 0 {
		return AppEvent{}, fmt.Errorf("%w: missing device id", ErrMalformedCommand)
	}
	if strings.TrimSpace(c.Data) == "" {
		return AppEvent{}, fmt.Errorf("%w: empty data", ErrMalformedCommand)
	}
	return NewAppEvent(id, c.Data, ToDevice), nil
}
