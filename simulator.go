package main

import (
	"context"
	"math/rand/v2"
	"time"

	. "github.com/elijahnyp/home_hub/util"
)

// Simulator drives periodic sensor activity: thermostat readings every
// tick and camera motion every other tick.
type Simulator struct {
	Frequency int64 `mapstructure:"frequency"`
	Workers   int64 `mapstructure:"workers"`
	Enabled   bool  `mapstructure:"enabled"`

	home  *Home
	queue chan func()
	ticks int
	randn func(n int) int
}

func NewSimulator(home *Home) *Simulator {
	s := &Simulator{home: home, randn: rand.IntN}
	if err := Config.UnmarshalKey("simulation", s); err != nil {
		Logger.Error().Msgf("Error loading simulation config: %v", err)
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.Frequency < 1 {
		s.Frequency = 1
	}
	s.queue = make(chan func(), s.Workers*4)
	return s
}

// Start runs the workers and the ticker until ctx is done.
func (s *Simulator) Start(ctx context.Context) {
	for i := 0; i < int(s.Workers); i++ {
		go s.worker(ctx)
	}
	ticker := time.NewTicker(time.Duration(s.Frequency) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

func (s *Simulator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			job()
		}
	}
}

func (s *Simulator) enqueue(ctx context.Context, job func()) bool {
	select {
	case s.queue <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Tick queues one round of activity.
func (s *Simulator) Tick(ctx context.Context) {
	tick := s.ticks
	s.ticks++
	for _, t := range s.home.Thermostats {
		temp := 22.0 + float64(s.randn(4))
		if !s.enqueue(ctx, func() { t.SimulateTemperatureChange(temp) }) {
			return
		}
	}
	if tick%2 != 0 {
		return
	}
	for _, c := range s.home.Cameras {
		if !s.enqueue(ctx, c.DetectMotion) {
			return
		}
	}
}
