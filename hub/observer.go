package hub

import (
	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

type Target int

const (
	TargetDevice Target = iota
	TargetApp
)

func (t Target) String() string {
	if t == TargetDevice {
		return "device"
	}
	return "app"
}

// Observer is told about every routing decision the coordinator makes.
// Implementations must not call back into the coordinator.
type Observer interface {
	Routed(ev event.Event, recipients int)
	Missed(ev event.AppEvent)
	HandlerFailed(ev event.Event, target Target, id int, err error)
}

type NopObserver struct{}

func (NopObserver) Routed(event.Event, int)                       {}
func (NopObserver) Missed(event.AppEvent)                         {}
func (NopObserver) HandlerFailed(event.Event, Target, int, error) {}

// LogObserver writes routing decisions to a zerolog logger.
type LogObserver struct {
	Logger zerolog.Logger
}

func (o LogObserver) Routed(ev event.Event, recipients int) {
	o.Logger.Debug().
		Str("kind", ev.Kind().String()).
		Int("device_id", ev.DeviceID()).
		Int("recipients", recipients).
		Msgf("routed %s", ev.Describe())
}

func (o LogObserver) Missed(ev event.AppEvent) {
	o.Logger.Warn().
		Int("device_id", ev.DeviceID()).
		Msgf("routing miss, no device %d: %s", ev.DeviceID(), ev.Describe())
}

func (o LogObserver) HandlerFailed(ev event.Event, target Target, id int, err error) {
	o.Logger.Error().
		Err(err).
		Str("target", target.String()).
		Int("target_id", id).
		Msgf("delivery failed for %s", ev.Describe())
}

// MultiObserver forwards to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) Routed(ev event.Event, recipients int) {
	for _, o := range m {
		o.Routed(ev, recipients)
	}
}

func (m MultiObserver) Missed(ev event.AppEvent) {
	for _, o := range m {
		o.Missed(ev)
	}
}

func (m MultiObserver) HandlerFailed(ev event.Event, target Target, id int, err error) {
	for _, o := range m {
		o.HandlerFailed(ev, target, id, err)
	}
}
