package state

import (
	"sync"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

const CmdToggle = "TOGGLE"

type SmartLight struct {
	SmartDevice
	mu   sync.Mutex
	isOn bool
}

func NewSmartLight(id int, name string, logger zerolog.Logger) *SmartLight {
	l := &SmartLight{}
	l.init(id, name, logger, []ConnectionType{WiFi}, []PowerSource{Mains})
	return l
}

func (l *SmartLight) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isOn
}

func (l *SmartLight) HandleEvent(ev event.AppEvent) {
	if ev.Payload() != CmdToggle {
		l.logger.Debug().Msgf("ignoring command %q", ev.Payload())
		return
	}
	l.mu.Lock()
	l.isOn = !l.isOn
	on := l.isOn
	l.mu.Unlock()

	l.logger.Info().Msgf("light %s turned %s", l.name, onOff(on))
	l.Emit("Light state changed to " + onOff(on))
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
