package state

import (
	"strconv"
	"strings"
	"sync"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

const CmdSetTemp = "SET_TEMP:"

type SmartThermostat struct {
	SmartDevice
	mu          sync.Mutex
	temperature float64
	target      float64
}

func NewSmartThermostat(id int, name string, logger zerolog.Logger) *SmartThermostat {
	t := &SmartThermostat{temperature: 20.0, target: 22.0}
	t.init(id, name, logger, []ConnectionType{WiFi, ZWave}, []PowerSource{Mains})
	return t
}

func (t *SmartThermostat) Temperature() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.temperature
}

func (t *SmartThermostat) Target() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

func (t *SmartThermostat) HandleEvent(ev event.AppEvent) {
	arg, ok := strings.CutPrefix(ev.Payload(), CmdSetTemp)
	if !ok {
		t.logger.Debug().Msgf("ignoring command %q", ev.Payload())
		return
	}
	target, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		t.logger.Warn().Msgf("bad target temperature %q: %v", arg, err)
		return
	}
	t.mu.Lock()
	t.target = target
	t.mu.Unlock()

	t.logger.Info().Msgf("thermostat %s target temperature set to %sC", t.name, formatTemp(target))
	t.Emit("Target temperature set to " + formatTemp(target))
}

// SimulateTemperatureChange records a new reading and reports it.
func (t *SmartThermostat) SimulateTemperatureChange(temp float64) {
	t.mu.Lock()
	t.temperature = temp
	t.mu.Unlock()

	t.logger.Info().Msgf("temperature changed to %sC", formatTemp(temp))
	t.Emit("Temperature: " + formatTemp(temp))
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
