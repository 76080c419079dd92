package main

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/elijahnyp/home_hub/hub"
	"github.com/elijahnyp/home_hub/state"
	. "github.com/elijahnyp/home_hub/util"
	"github.com/rs/zerolog"
)

const ( // device kinds
	KindLight      = "light"
	KindThermostat = "thermostat"
	KindCamera     = "camera"
)

type Model struct {
	Rooms []RoomSpec `mapstructure:"rooms" yaml:"rooms"`
}

type RoomSpec struct {
	Name    string       `mapstructure:"name" yaml:"name"`
	Info    string       `mapstructure:"info" yaml:"info,omitempty"`
	Devices []DeviceSpec `mapstructure:"devices" yaml:"devices"`
}

type DeviceSpec struct {
	ID   int    `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
	Kind string `mapstructure:"kind" yaml:"kind"`
}

// DefaultModel is the home used when no model is configured.
func DefaultModel() Model {
	return Model{Rooms: []RoomSpec{
		{
			Name: "Living Room",
			Devices: []DeviceSpec{
				{ID: 1, Name: "Living Room Light", Kind: KindLight},
				{ID: 3, Name: "Security Camera", Kind: KindCamera},
			},
		},
		{
			Name: "Bedroom",
			Devices: []DeviceSpec{
				{ID: 2, Name: "Home Thermostat", Kind: KindThermostat},
			},
		},
	}}
}

func (m *Model) BuildModel() error {
	*m = Model{}
	if err := Config.UnmarshalKey("model", m); err != nil {
		return fmt.Errorf("unmarshaling model: %w", err)
	}
	if len(m.Rooms) == 0 {
		Logger.Info().Msg("no model configured, using default home")
		*m = DefaultModel()
	}
	return nil
}

// Home is the set of simulated devices built from a Model.
type Home struct {
	Lights      []*state.SmartLight
	Thermostats []*state.SmartThermostat
	Cameras     []*state.SmartCamera
}

func newDevice(spec DeviceSpec, logger zerolog.Logger, home *Home) (hub.Device, error) {
	switch strings.ToLower(spec.Kind) {
	case KindLight:
		l := state.NewSmartLight(spec.ID, spec.Name, logger)
		home.Lights = append(home.Lights, l)
		return l, nil
	case KindThermostat:
		t := state.NewSmartThermostat(spec.ID, spec.Name, logger)
		home.Thermostats = append(home.Thermostats, t)
		return t, nil
	case KindCamera:
		c := state.NewSmartCamera(spec.ID, spec.Name, logger)
		home.Cameras = append(home.Cameras, c)
		return c, nil
	}
	if guess := closestKind(spec.Kind); guess != "" {
		return nil, fmt.Errorf("device %d (%s): unknown kind %q, did you mean %q", spec.ID, spec.Name, spec.Kind, guess)
	}
	return nil, fmt.Errorf("device %d (%s): unknown kind %q", spec.ID, spec.Name, spec.Kind)
}

// closestKind suggests a known kind within two edits of kind.
func closestKind(kind string) string {
	best, bestDist := "", 3
	for _, k := range []string{KindLight, KindThermostat, KindCamera} {
		if d := levenshtein.ComputeDistance(strings.ToLower(kind), k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// Populate builds every device of m, registers it with coord and adds the
// rooms. The first registration error aborts.
func (m Model) Populate(coord *hub.Coordinator, logger zerolog.Logger) (*Home, error) {
	home := &Home{}
	for _, rs := range m.Rooms {
		room := state.NewRoom(rs.Name, rs.Info)
		for _, spec := range rs.Devices {
			d, err := newDevice(spec, logger, home)
			if err != nil {
				return nil, err
			}
			if err := coord.RegisterDevice(d); err != nil {
				return nil, fmt.Errorf("registering %s: %w", spec.Name, err)
			}
			room.AddDevice(spec.ID)
		}
		if err := coord.AddRoom(room); err != nil {
			return nil, fmt.Errorf("adding room %s: %w", rs.Name, err)
		}
	}
	return home, nil
}
