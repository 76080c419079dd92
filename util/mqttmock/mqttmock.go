// Package mqttmock provides in-memory stand-ins for the paho client types.
package mqttmock

import (
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type PublishCall struct {
	Payload  interface{}
	Topic    string
	QoS      byte
	Retained bool
}

type SubscribeCall struct {
	Handler MQTT.MessageHandler
	Topic   string
	QoS     byte
}

// Client records publishes and subscriptions. Publishing to a topic with a
// subscribed handler does not loop back; use Deliver for inbound messages.
type Client struct {
	mu             sync.RWMutex
	publishCalls   []PublishCall
	subscribeCalls []SubscribeCall
	connected      bool
	PublishErr     error
}

func (m *Client) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Client) IsConnectionOpen() bool { return m.IsConnected() }

func (m *Client) Connect() MQTT.Token {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return &Token{}
}

func (m *Client) Disconnect(quiesce uint) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

func (m *Client) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishCalls = append(m.publishCalls, PublishCall{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  payload,
	})
	return &Token{Err: m.PublishErr}
}

func (m *Client) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls = append(m.subscribeCalls, SubscribeCall{
		Topic:   topic,
		QoS:     qos,
		Handler: callback,
	})
	return &Token{}
}

func (m *Client) SubscribeMultiple(filters map[string]byte, callback MQTT.MessageHandler) MQTT.Token {
	return &Token{}
}
func (m *Client) Unsubscribe(topics ...string) MQTT.Token             { return &Token{} }
func (m *Client) AddRoute(topic string, callback MQTT.MessageHandler) {}
func (m *Client) OptionsReader() MQTT.ClientOptionsReader             { return MQTT.ClientOptionsReader{} }

func (m *Client) PublishCalls() []PublishCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PublishCall(nil), m.publishCalls...)
}

func (m *Client) SubscribeCalls() []SubscribeCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SubscribeCall(nil), m.subscribeCalls...)
}

// Deliver hands a message to the handler of the first subscription whose
// filter equals topic filter.
func (m *Client) Deliver(filter, topic string, payload []byte) bool {
	m.mu.RLock()
	var handler MQTT.MessageHandler
	for _, s := range m.subscribeCalls {
		if s.Topic == filter {
			handler = s.Handler
			break
		}
	}
	m.mu.RUnlock()
	if handler == nil {
		return false
	}
	handler(m, &Message{TopicName: topic, Body: payload})
	return true
}

type Token struct {
	Err error
}

func (m *Token) Wait() bool                     { return true }
func (m *Token) WaitTimeout(time.Duration) bool { return true }
func (m *Token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *Token) Error() error { return m.Err }

type Message struct {
	TopicName string
	Body      []byte
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return 0 }
func (m *Message) Retained() bool    { return false }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              {}
