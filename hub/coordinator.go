// Package hub routes events between registered devices and linked
// applications.
//
// Routing rules:
//   - a DeviceEvent is forwarded as a TO_APP AppEvent to every linked app;
//   - a TO_DEVICE AppEvent goes to the single device registered under its id,
//     or is counted as a routing miss when there is none;
//   - a TO_APP AppEvent is broadcast to every linked app.
//
// Deliveries happen in registration (devices) or link (apps) order with no
// lock held, so handlers may dispatch again from inside HandleEvent.
package hub

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/elijahnyp/home_hub/event"
	"github.com/elijahnyp/home_hub/state"
	"github.com/rs/zerolog"
)

var ErrNilCollaborator = errors.New("nil device or application")

// Device is anything the hub can deliver a TO_DEVICE event to. HandleEvent
// must not block and must not panic; a panic is recovered and reported.
type Device interface {
	ID() int
	Name() string
	HandleEvent(ev event.AppEvent)
}

// Application receives every app-directed broadcast. Same contract as Device.
type Application interface {
	ID() int
	ReceiveEvent(ev event.AppEvent)
}

// collaborators implementing attacher get a handle on the hub when added
type attacher interface {
	Attach(hub state.Dispatcher)
}

type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Delivered  uint64 `json:"delivered"`
	Misses     uint64 `json:"misses"`
	Failures   uint64 `json:"failures"`
}

type DeviceInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Coordinator struct {
	mu      sync.RWMutex
	devices map[int]Device
	order   []int
	apps    []Application
	rooms   []*state.Room

	observer Observer
	logger   zerolog.Logger

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	misses     atomic.Uint64
	failures   atomic.Uint64
}

type Option func(*Coordinator)

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithLogger sets the logger used for registration messages. Unless
// WithObserver is also given, routing decisions are logged to it as well.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		devices: make(map[int]Device),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.observer == nil {
		c.observer = LogObserver{Logger: c.logger}
	}
	c.logger.Info().Msg("coordinator initialized")
	return c
}

// RegisterDevice adds d under d.ID(). A second device with the same id is
// rejected with a *DuplicateIDError and the first one stays registered.
// The device is attached before it becomes routable, so anything it emits
// from its first HandleEvent reaches the hub. A typed nil pointer is a
// caller error and panics on d.ID().
func (c *Coordinator) RegisterDevice(d Device) error {
	if d == nil {
		return ErrNilCollaborator
	}
	id := d.ID()
	c.mu.RLock()
	existing, ok := c.devices[id]
	c.mu.RUnlock()
	if ok {
		return &DuplicateIDError{ID: id, Existing: existing.Name(), Rejected: d.Name()}
	}

	if a, ok := d.(attacher); ok {
		a.Attach(c)
	}

	c.mu.Lock()
	if existing, ok := c.devices[id]; ok {
		c.mu.Unlock()
		return &DuplicateIDError{ID: id, Existing: existing.Name(), Rejected: d.Name()}
	}
	c.devices[id] = d
	c.order = append(c.order, id)
	c.mu.Unlock()

	c.logger.Info().Int("device_id", id).Msgf("adding device %s", d.Name())
	return nil
}

// LinkApplication appends a to the broadcast list. Linking the same app twice
// makes it receive every broadcast twice.
func (c *Coordinator) LinkApplication(a Application) error {
	if a == nil {
		return ErrNilCollaborator
	}
	if at, ok := a.(attacher); ok {
		at.Attach(c)
	}

	c.mu.Lock()
	c.apps = append(c.apps, a)
	c.mu.Unlock()

	c.logger.Info().Int("app_id", a.ID()).Msg("linking application")
	return nil
}

// AddRoom records r for grouping. Rooms never affect routing.
func (c *Coordinator) AddRoom(r *state.Room) error {
	if r == nil {
		return ErrNilRoom
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.rooms {
		if existing.Name() == r.Name() {
			return ErrDuplicateRoom
		}
	}
	c.rooms = append(c.rooms, r)
	c.logger.Info().Msgf("adding room %s", r.Name())
	return nil
}

// Dispatch routes ev. It never fails: misses and handler failures are
// reported to the observer and counted in Stats.
func (c *Coordinator) Dispatch(ev event.Event) {
	switch e := ev.(type) {
	case event.DeviceEvent:
		c.dispatched.Add(1)
		c.broadcast(e.Forward())
	case event.AppEvent:
		c.dispatched.Add(1)
		if e.Direction() == event.ToDevice {
			c.deliver(e)
		} else {
			c.broadcast(e)
		}
	case *event.DeviceEvent:
		if e != nil {
			c.Dispatch(*e)
		}
	case *event.AppEvent:
		if e != nil {
			c.Dispatch(*e)
		}
	default:
		c.logger.Warn().Msg("dispatch called without an event")
	}
}

func (c *Coordinator) deliver(ev event.AppEvent) {
	c.mu.RLock()
	d, ok := c.devices[ev.DeviceID()]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		c.observer.Missed(ev)
		return
	}
	if err := safely(func() { d.HandleEvent(ev) }); err != nil {
		c.failures.Add(1)
		c.observer.HandlerFailed(ev, TargetDevice, ev.DeviceID(), err)
		return
	}
	c.delivered.Add(1)
	c.observer.Routed(ev, 1)
}

func (c *Coordinator) broadcast(ev event.AppEvent) {
	c.mu.RLock()
	apps := slices.Clone(c.apps)
	c.mu.RUnlock()

	n := 0
	for _, app := range apps {
		if err := safely(func() { app.ReceiveEvent(ev) }); err != nil {
			c.failures.Add(1)
			c.observer.HandlerFailed(ev, TargetApp, app.ID(), err)
			continue
		}
		n++
	}
	c.delivered.Add(uint64(n))
	c.observer.Routed(ev, n)
}

func safely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = HandlerPanic{Value: r}
		}
	}()
	fn()
	return nil
}

func (c *Coordinator) Device(id int) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[id]
	return d, ok
}

// Devices lists registered devices in registration order.
func (c *Coordinator) Devices() []DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DeviceInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, DeviceInfo{ID: id, Name: c.devices[id].Name()})
	}
	return out
}

func (c *Coordinator) Applications() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.apps)
}

func (c *Coordinator) Rooms() []*state.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.rooms)
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Dispatched: c.dispatched.Load(),
		Delivered:  c.delivered.Load(),
		Misses:     c.misses.Load(),
		Failures:   c.failures.Load(),
	}
}
