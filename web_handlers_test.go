package main

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elijahnyp/home_hub/event"
	"github.com/elijahnyp/home_hub/hub"
	"github.com/elijahnyp/home_hub/state"
	. "github.com/elijahnyp/home_hub/util"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type testSetup struct {
	coord   *hub.Coordinator
	home    *Home
	ws      *WSHub
	phone   *state.PhoneApp
	monitor *MonitorServer
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	coord := hub.New()
	home, err := DefaultModel().Populate(coord, zerolog.Nop())
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	phone := state.NewPhoneApp(phoneAppID, zerolog.Nop())
	if err := coord.LinkApplication(phone); err != nil {
		t.Fatalf("LinkApplication: %v", err)
	}
	ws := NewHub(wsAppID)
	go ws.Run()
	if err := coord.LinkApplication(ws); err != nil {
		t.Fatalf("LinkApplication: %v", err)
	}
	monitor := NewMonitorServer()
	(&API{coord: coord, ws: ws}).Routes(monitor)
	return &testSetup{coord: coord, home: home, ws: ws, phone: phone, monitor: monitor}
}

func (s *testSetup) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.monitor.Router().ServeHTTP(w, req)
	return w
}

func TestAPIDevices(t *testing.T) {
	s := newTestSetup(t)

	w := s.do(http.MethodGet, "/api/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var devices []hub.DeviceInfo
	if err := json.Unmarshal(w.Body.Bytes(), &devices); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	expected := []hub.DeviceInfo{
		{ID: 1, Name: "Living Room Light"},
		{ID: 3, Name: "Security Camera"},
		{ID: 2, Name: "Home Thermostat"},
	}
	if len(devices) != len(expected) {
		t.Fatalf("Expected %d devices, got %d", len(expected), len(devices))
	}
	for i := range expected {
		if devices[i] != expected[i] {
			t.Errorf("device %d = %+v, expected %+v", i, devices[i], expected[i])
		}
	}
}

func TestAPIRooms(t *testing.T) {
	s := newTestSetup(t)

	w := s.do(http.MethodGet, "/api/rooms", "")
	var rooms []WebRoom
	if err := json.Unmarshal(w.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Living Room" || rooms[1].Name != "Bedroom" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
	if len(rooms[0].Devices) != 2 || rooms[0].Devices[0] != 1 || rooms[0].Devices[1] != 3 {
		t.Errorf("Living Room devices = %v, expected [1 3]", rooms[0].Devices)
	}
}

func TestAPICommand(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectMiss     bool
	}{
		{"toggle light", "/api/devices/1/command", `{"data":"TOGGLE"}`, http.StatusAccepted, false},
		{"unknown device", "/api/devices/99/command", `{"data":"TOGGLE"}`, http.StatusAccepted, true},
		{"bad id", "/api/devices/abc/command", `{"data":"TOGGLE"}`, http.StatusBadRequest, false},
		{"empty data", "/api/devices/1/command", `{"data":""}`, http.StatusBadRequest, false},
		{"not json", "/api/devices/1/command", `TOGGLE`, http.StatusBadRequest, false},
		{"mismatched id", "/api/devices/1/command", `{"deviceId":2,"data":"TOGGLE"}`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSetup(t)
			w := s.do(http.MethodPost, tt.path, tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			stats := s.coord.Stats()
			if tt.expectMiss && stats.Misses != 1 {
				t.Errorf("Expected one miss, got %+v", stats)
			}
			if tt.expectedStatus != http.StatusAccepted && stats.Dispatched != 0 {
				t.Errorf("rejected command should not be dispatched, got %+v", stats)
			}
		})
	}
}

func TestAPICommandReachesPhone(t *testing.T) {
	s := newTestSetup(t)

	s.do(http.MethodPost, "/api/devices/1/command", `{"data":"TOGGLE"}`)

	if !s.home.Lights[0].IsOn() {
		t.Fatal("light should be on")
	}
	inbox := s.phone.Inbox()
	if len(inbox) != 1 || inbox[0].Payload() != "Light state changed to ON" || inbox[0].DeviceID() != 1 {
		t.Errorf("phone inbox = %v", inbox)
	}
}

func TestAPIStatus(t *testing.T) {
	s := newTestSetup(t)
	s.do(http.MethodPost, "/api/devices/1/command", `{"data":"TOGGLE"}`)
	s.do(http.MethodPost, "/api/devices/99/command", `{"data":"TOGGLE"}`)

	w := s.do(http.MethodGet, "/api/status", "")
	var status SystemStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.Devices != 3 || status.Applications != 2 || status.Rooms != 2 {
		t.Errorf("unexpected registry sizes %+v", status)
	}
	// two commands plus the light's state change
	if status.Stats.Dispatched != 3 || status.Stats.Misses != 1 {
		t.Errorf("unexpected stats %+v", status.Stats)
	}
}

func TestAPISnapshot(t *testing.T) {
	s := newTestSetup(t)

	if w := s.do(http.MethodGet, "/snapshot/3", ""); w.Code != http.StatusNotFound {
		t.Errorf("camera without motion should 404, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/snapshot/1", ""); w.Code != http.StatusNotFound {
		t.Errorf("light has no snapshot, expected 404, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/snapshot/42", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown device should 404, got %d", w.Code)
	}

	s.home.Cameras[0].DetectMotion()

	w := s.do(http.MethodGet, "/snapshot/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected content type image/jpeg, got %s", ct)
	}
	if _, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Errorf("snapshot is not a JPEG: %v", err)
	}
}

func TestWebSocketStream(t *testing.T) {
	s := newTestSetup(t)
	srv := httptest.NewServer(s.monitor.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // test cleanup
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test helper

	var hello struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("reading hello: %v", err)
	}
	if hello.Type != "hello" || hello.Data["client_id"] == "" {
		t.Fatalf("unexpected hello %+v", hello)
	}

	// wait for registration so the broadcast is not missed
	deadline := time.Now().Add(2 * time.Second)
	for s.ws.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"deviceId":1,"data":"TOGGLE"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var msg struct {
		Type string     `json:"type"`
		Data event.Wire `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if msg.Type != "event" || msg.Data.DeviceID != 1 || msg.Data.Data != "Light state changed to ON" {
		t.Errorf("unexpected event message %+v", msg)
	}
}

type panickingApp struct{ id int }

func (p panickingApp) ID() int                    { return p.id }
func (p panickingApp) ReceiveEvent(event.AppEvent) { panic("display broken") }

func nextBroadcast(t *testing.T, ws *WSHub) WebSocketMessage {
	t.Helper()
	select {
	case msg := <-ws.broadcast:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no websocket broadcast")
		return WebSocketMessage{}
	}
}

func TestWSAlerts(t *testing.T) {
	ws := NewHub(wsAppID)
	coord := hub.New(hub.WithObserver(hub.MultiObserver{hub.LogObserver{Logger: zerolog.Nop()}, wsAlerts{ws: ws}}))
	if err := coord.LinkApplication(panickingApp{id: 7}); err != nil {
		t.Fatalf("LinkApplication: %v", err)
	}

	coord.Dispatch(event.NewAppEvent(99, "TOGGLE", event.ToDevice))
	msg := nextBroadcast(t, ws)
	if msg.Type != "miss" {
		t.Fatalf("first broadcast type = %s, expected miss", msg.Type)
	}
	if alert := msg.Data.(routingAlert); alert.Event.DeviceID() != 99 {
		t.Errorf("miss alert for device %d, expected 99", alert.Event.DeviceID())
	}

	coord.Dispatch(event.NewDeviceEvent(1, "Light state changed to ON"))
	msg = nextBroadcast(t, ws)
	if msg.Type != "app_failure" {
		t.Fatalf("second broadcast type = %s, expected app_failure", msg.Type)
	}
	alert := msg.Data.(routingAlert)
	if alert.TargetID != 7 || !strings.Contains(alert.Error, "display broken") {
		t.Errorf("unexpected failure alert %+v", alert)
	}
	if alert.Event.Direction() != event.ToApp || alert.Event.Payload() != "Light state changed to ON" {
		t.Errorf("failure alert carries %s", alert.Event.Describe())
	}

	select {
	case extra := <-ws.broadcast:
		t.Errorf("successful routing should not alert, got %s", extra.Type)
	default:
	}
}
