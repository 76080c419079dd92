package main

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/home_hub/event"
	"github.com/elijahnyp/home_hub/state"
	. "github.com/elijahnyp/home_hub/util"
)

// MQTTBridge is a linked application that mirrors app-bound events onto
// MQTT and turns command messages back into device events.
type MQTTBridge struct {
	id     int
	client func() MQTT.Client

	mu  sync.RWMutex
	hub state.Dispatcher
}

// NewMQTTBridge builds a bridge publishing through whatever client returns
// at the time of each event, so reconnects are picked up.
func NewMQTTBridge(id int, client func() MQTT.Client) *MQTTBridge {
	return &MQTTBridge{id: id, client: client}
}

func (b *MQTTBridge) ID() int { return b.id }

func (b *MQTTBridge) Attach(hub state.Dispatcher) {
	b.mu.Lock()
	b.hub = hub
	b.mu.Unlock()
}

func eventsTopic(id int) string {
	return Topic("devices", strconv.Itoa(id), "events")
}

func commandFilter() string {
	return Topic("devices", "+", "command")
}

func (b *MQTTBridge) ReceiveEvent(ev event.AppEvent) {
	client := b.client()
	if client == nil {
		Logger.Debug().Msgf("no mqtt client, not publishing %s", ev.Describe())
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		Logger.Error().Msgf("Error marshalling event: %v", err)
		return
	}
	watch(eventsTopic(ev.DeviceID()), client.Publish(eventsTopic(ev.DeviceID()), 0, false, data))
	watch(DeviceStateTopic(ev.DeviceID()), client.Publish(DeviceStateTopic(ev.DeviceID()), 0, true, ev.Payload()))
}

// watch reports a failed publish without holding up the caller.
func watch(topic string, token MQTT.Token) {
	go func() {
		if token.Wait() && token.Error() != nil {
			Logger.Warn().Msgf("Error publishing to %s: %v", topic, token.Error())
		}
	}()
}

// Subscribe registers the command handler; it is applied on every connect.
func (b *MQTTBridge) Subscribe() {
	RegisterMQTTSubscription(commandFilter(), b.onCommand)
}

func (b *MQTTBridge) onCommand(client MQTT.Client, message MQTT.Message) {
	ev, err := commandFromMessage(message.Topic(), message.Payload())
	if err != nil {
		Logger.Warn().Msgf("dropping command on %s: %v", message.Topic(), err)
		return
	}
	b.mu.RLock()
	hub := b.hub
	b.mu.RUnlock()
	if hub == nil {
		Logger.Warn().Msgf("bridge not linked, dropping %s", ev.Describe())
		return
	}
	Logger.Debug().Msgf("command received on %s: %s", message.Topic(), ev.Describe())
	hub.Dispatch(ev)
}

// topicDeviceID pulls <id> out of <prefix>/devices/<id>/command, or -1.
func topicDeviceID(topic string) int {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[len(parts)-3] != "devices" {
		return -1
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return -1
	}
	return id
}

// commandFromMessage accepts a JSON command or a bare action such as TOGGLE.
func commandFromMessage(topic string, payload []byte) (event.AppEvent, error) {
	id := topicDeviceID(topic)
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		return event.ParseCommand(payload, id)
	}
	body, err := json.Marshal(map[string]string{"data": trimmed})
	if err != nil {
		return event.AppEvent{}, err
	}
	return event.ParseCommand(body, id)
}
