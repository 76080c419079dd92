package main

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/elijahnyp/home_hub/event"
	"github.com/elijahnyp/home_hub/hub"
	"github.com/elijahnyp/home_hub/state"
	. "github.com/elijahnyp/home_hub/util"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub is a linked application fanning app-bound events out to browsers.
// Clients may also send commands, which are dispatched to devices.
type WSHub struct {
	id         int
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	count      chan chan int

	mu         sync.RWMutex
	dispatcher state.Dispatcher
}

// NewHub creates a new WebSocket hub
func NewHub(id int) *WSHub {
	return &WSHub{
		id:         id,
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		count:      make(chan chan int),
	}
}

func (h *WSHub) ID() int { return h.id }

func (h *WSHub) Attach(dispatcher state.Dispatcher) {
	h.mu.Lock()
	h.dispatcher = dispatcher
	h.mu.Unlock()
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Str("client", client.id).Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Str("client", client.id).Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Clients reports how many browsers are connected. Run must be going.
func (h *WSHub) Clients() int {
	reply := make(chan int)
	h.count <- reply
	return <-reply
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		Logger.Warn().Msgf("websocket broadcast queue full, dropping %s", messageType)
	}
}

func (h *WSHub) ReceiveEvent(ev event.AppEvent) {
	h.BroadcastUpdate("event", ev)
}

// wsAlerts pushes routing misses and handler failures to browsers.
type wsAlerts struct {
	hub.NopObserver
	ws *WSHub
}

type routingAlert struct {
	Event    event.AppEvent `json:"event"`
	TargetID int            `json:"target_id,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (a wsAlerts) Missed(ev event.AppEvent) {
	a.ws.BroadcastUpdate("miss", routingAlert{Event: ev})
}

func (a wsAlerts) HandlerFailed(ev event.Event, target hub.Target, id int, err error) {
	alert := routingAlert{TargetID: id, Error: err.Error()}
	switch e := ev.(type) {
	case event.AppEvent:
		alert.Event = e
	case event.DeviceEvent:
		alert.Event = e.Forward()
	}
	a.ws.BroadcastUpdate(target.String()+"_failure", alert)
}

func (h *WSHub) command(clientID string, raw []byte) {
	ev, err := event.ParseCommand(raw, -1)
	if err != nil {
		Logger.Warn().Str("client", clientID).Msgf("dropping websocket command: %v", err)
		return
	}
	h.mu.RLock()
	dispatcher := h.dispatcher
	h.mu.RUnlock()
	if dispatcher == nil {
		Logger.Warn().Msgf("websocket hub not linked, dropping %s", ev.Describe())
		return
	}
	dispatcher.Dispatch(ev)
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.hub.command(c.id, raw)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer
func (h *WSHub) ServeWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}

	client := &WSClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  h,
	}
	client.send <- WebSocketMessage{Type: "hello", Data: map[string]string{"client_id": client.id}}

	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// API serves the hub's REST surface.
type API struct {
	coord *hub.Coordinator
	ws    *WSHub
}

// SystemStatus represents the overall system status
type SystemStatus struct {
	Stats        hub.Stats `json:"stats"`
	Devices      int       `json:"devices"`
	Applications int       `json:"applications"`
	Rooms        int       `json:"rooms"`
	WSClients    int       `json:"ws_clients"`
	Timestamp    int64     `json:"timestamp"`
}

// WebRoom represents a room for the web interface
type WebRoom struct {
	Name    string `json:"name"`
	Info    string `json:"info,omitempty"`
	Devices []int  `json:"devices"`
}

type commandResponse struct {
	Accepted string `json:"accepted"`
}

type snapshotter interface {
	Snapshot() ([]byte, time.Time, bool)
}

func (a *API) Routes(s *MonitorServer) {
	s.AddHandler(http.MethodGet, "/api/status", a.SystemStatus)
	s.AddHandler(http.MethodGet, "/api/devices", a.Devices)
	s.AddHandler(http.MethodGet, "/api/rooms", a.Rooms)
	s.AddHandler(http.MethodPost, "/api/devices/:id/command", a.Command)
	s.AddHandler(http.MethodGet, "/snapshot/:id", a.Snapshot)
	if a.ws != nil {
		s.AddHandler(http.MethodGet, "/ws", a.ws.ServeWebSocket)
	}
}

// SystemStatus returns routing counters and registry sizes
func (a *API) SystemStatus(c echo.Context) error {
	status := SystemStatus{
		Stats:        a.coord.Stats(),
		Devices:      len(a.coord.Devices()),
		Applications: a.coord.Applications(),
		Rooms:        len(a.coord.Rooms()),
		Timestamp:    time.Now().Unix(),
	}
	if a.ws != nil {
		status.WSClients = a.ws.Clients()
	}
	return c.JSON(http.StatusOK, status)
}

func (a *API) Devices(c echo.Context) error {
	return c.JSON(http.StatusOK, a.coord.Devices())
}

func (a *API) Rooms(c echo.Context) error {
	rooms := []WebRoom{}
	for _, r := range a.coord.Rooms() {
		rooms = append(rooms, WebRoom{Name: r.Name(), Info: r.Info(), Devices: r.DeviceIDs()})
	}
	return c.JSON(http.StatusOK, rooms)
}

// Command accepts {"data":"TOGGLE"} (optionally with deviceId, which must
// match the path) and dispatches it. Unknown devices are still accepted;
// the miss shows up in the routing stats.
func (a *API) Command(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	ev, err := event.ParseCommand(body, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if ev.DeviceID() != id {
		return echo.NewHTTPError(http.StatusBadRequest, "device id in body does not match path")
	}
	a.coord.Dispatch(ev)
	return c.JSON(http.StatusAccepted, commandResponse{Accepted: ev.Describe()})
}

// Snapshot serves the last frame captured by a camera
func (a *API) Snapshot(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}
	d, ok := a.coord.Device(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown ID")
	}
	cam, ok := d.(snapshotter)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "device has no camera")
	}
	frame, at, ok := cam.Snapshot()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no snapshot yet")
	}
	c.Response().Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	return c.Blob(http.StatusOK, "image/jpeg", frame)
}
