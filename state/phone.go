package state

import (
	"sync"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

const inboxSize = 64

// PhoneApp is a companion application linked to the hub.
type PhoneApp struct {
	id     int
	logger zerolog.Logger

	mu        sync.Mutex
	hub       Dispatcher
	inbox     []event.AppEvent
	listeners []func(event.AppEvent)
}

func NewPhoneApp(id int, logger zerolog.Logger) *PhoneApp {
	logger = logger.With().Int("app_id", id).Logger()
	logger.Debug().Msg("created phone app")
	return &PhoneApp{id: id, logger: logger}
}

func (p *PhoneApp) ID() int { return p.id }

func (p *PhoneApp) Attach(hub Dispatcher) {
	p.mu.Lock()
	p.hub = hub
	p.mu.Unlock()
}

// OnReceive registers fn to be called with every event the app receives.
func (p *PhoneApp) OnReceive(fn func(event.AppEvent)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *PhoneApp) ReceiveEvent(ev event.AppEvent) {
	p.logger.Info().Msgf("phone app %d received event: %s", p.id, ev.Describe())
	p.mu.Lock()
	if len(p.inbox) == inboxSize {
		p.inbox = p.inbox[1:]
	}
	p.inbox = append(p.inbox, ev)
	listeners := append(([]func(event.AppEvent))(nil), p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Inbox returns the most recent events received, oldest first.
func (p *PhoneApp) Inbox() []event.AppEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.AppEvent(nil), p.inbox...)
}

// SendEvent asks the hub to deliver action to deviceID.
func (p *PhoneApp) SendEvent(deviceID int, action string) {
	ev := event.NewAppEvent(deviceID, action, event.ToDevice)
	p.mu.Lock()
	hub := p.hub
	p.mu.Unlock()
	if hub == nil {
		p.logger.Warn().Msgf("not linked to a hub, dropping %s", ev.Describe())
		return
	}
	p.logger.Info().Msgf("phone app %d sending event: %s", p.id, ev.Describe())
	hub.Dispatch(ev)
}

// Human drives a phone app and hears back whatever the app receives.
type Human struct {
	name   string
	phone  *PhoneApp
	logger zerolog.Logger

	mu        sync.Mutex
	responses []event.AppEvent
}

func NewHuman(name string, phone *PhoneApp, logger zerolog.Logger) *Human {
	h := &Human{name: name, phone: phone, logger: logger.With().Str("human", name).Logger()}
	phone.OnReceive(h.AcceptResponse)
	return h
}

func (h *Human) Name() string { return h.name }

// AcceptResponse records a response passed on by the phone app.
func (h *Human) AcceptResponse(ev event.AppEvent) {
	h.logger.Info().Msgf("%s received response: %s", h.name, ev.Payload())
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.responses) == inboxSize {
		h.responses = h.responses[1:]
	}
	h.responses = append(h.responses, ev)
}

// Responses returns the most recent responses, oldest first.
func (h *Human) Responses() []event.AppEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.AppEvent(nil), h.responses...)
}

func (h *Human) MakeAction(deviceID int, action string) {
	h.logger.Info().Msgf("%s initiating action: %s for device %d", h.name, action, deviceID)
	h.phone.SendEvent(deviceID, action)
}
