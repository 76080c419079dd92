package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/elijahnyp/home_hub/hub"
	"github.com/elijahnyp/home_hub/state"
	"github.com/rs/zerolog"
)

const phoneAppID = 1

type Demo struct {
	Coord *hub.Coordinator
	Home  *Home
	Phone *state.PhoneApp
	User  *state.Human

	pause time.Duration
	randn func(n int) int
}

// NewDemo wires the default home to a coordinator with one phone app.
func NewDemo(logger zerolog.Logger, pause time.Duration) (*Demo, error) {
	coord := hub.New(hub.WithLogger(logger))
	home, err := DefaultModel().Populate(coord, logger)
	if err != nil {
		return nil, err
	}
	phone := state.NewPhoneApp(phoneAppID, logger)
	if err := coord.LinkApplication(phone); err != nil {
		return nil, fmt.Errorf("linking phone app: %w", err)
	}
	return &Demo{
		Coord: coord,
		Home:  home,
		Phone: phone,
		User:  state.NewHuman("Alex", phone, logger),
		pause: pause,
		randn: rand.IntN,
	}, nil
}

func (d *Demo) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.pause):
		return nil
	}
}

// Run plays the scripted session: user commands first, then three rounds
// of simulated sensor activity.
func (d *Demo) Run(ctx context.Context) error {
	actions := []struct {
		device int
		action string
	}{
		{1, state.CmdToggle},
		{1, state.CmdToggle},
		{2, state.CmdSetTemp + "24.5"},
		{3, state.CmdToggleRecording},
	}
	for _, a := range actions {
		d.User.MakeAction(a.device, a.action)
		if err := d.wait(ctx); err != nil {
			return err
		}
	}

	for i := 0; i < 3; i++ {
		if err := d.wait(ctx); err != nil {
			return err
		}
		for _, t := range d.Home.Thermostats {
			t.SimulateTemperatureChange(22.0 + float64(d.randn(4)))
		}
		if i%2 == 0 {
			for _, c := range d.Home.Cameras {
				c.DetectMotion()
			}
		}
	}
	return nil
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	deviceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statsStyle   = lipgloss.NewStyle().Faint(true)
)

// Report writes what the phone app received and the routing counters.
func (d *Demo) Report(w io.Writer) error {
	if _, err := fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("phone app %d inbox", d.Phone.ID()))); err != nil {
		return err
	}
	for _, ev := range d.Phone.Inbox() {
		name := fmt.Sprintf("device %d", ev.DeviceID())
		if dev, ok := d.Coord.Device(ev.DeviceID()); ok {
			name = dev.Name()
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", deviceStyle.Render(name), ev.Describe()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, statsStyle.Render(fmt.Sprintf("%s heard %d responses", d.User.Name(), len(d.User.Responses())))); err != nil {
		return err
	}
	s := d.Coord.Stats()
	_, err := fmt.Fprintln(w, statsStyle.Render(fmt.Sprintf("dispatched=%d delivered=%d misses=%d failures=%d",
		s.Dispatched, s.Delivered, s.Misses, s.Failures)))
	return err
}
