package util

import (
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

var (
	clientMu sync.RWMutex
	client   MQTT.Client
)

// MQTTClient returns the current shared client, nil until MqttInit succeeds.
func MQTTClient() MQTT.Client {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// SetMQTTClient swaps the shared client and returns the previous one.
func SetMQTTClient(c MQTT.Client) MQTT.Client {
	clientMu.Lock()
	defer clientMu.Unlock()
	old := client
	client = c
	return old
}

var (
	hooksMu         sync.Mutex
	subscriptions   map[string]MQTT.MessageHandler
	connectHandlers map[string]func(MQTT.Client)
)

func OnlineTopic() string { return Topic("online") }

var connectHandler MQTT.OnConnectHandler = func(client MQTT.Client) {
	Logger.Info().Msg("Connected")
	subscribe(client)
	client.Publish(OnlineTopic(), 0, false, "online").Wait()

	hooksMu.Lock()
	handlers := make([]func(MQTT.Client), 0, len(connectHandlers))
	for _, handler := range connectHandlers {
		handlers = append(handlers, handler)
	}
	hooksMu.Unlock()
	for _, handler := range handlers {
		handler(client)
	}
}

func RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if connectHandlers == nil {
		connectHandlers = make(map[string]func(client MQTT.Client))
	}
	if handler == nil {
		delete(connectHandlers, name)
	} else {
		connectHandlers[name] = handler
	}
}

func subscribe(client MQTT.Client) {
	hooksMu.Lock()
	subs := make(map[string]MQTT.MessageHandler, len(subscriptions))
	for topic, handler := range subscriptions {
		subs[topic] = handler
	}
	hooksMu.Unlock()
	for topic, handler := range subs {
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error Subscribing to %s: %v", topic, token.Error())
		}
	}
}

// RegisterMQTTSubscription records handler for topic. Subscriptions are
// (re)applied on every connect; a nil handler removes the topic.
func RegisterMQTTSubscription(topic string, handler MQTT.MessageHandler) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if subscriptions == nil {
		subscriptions = make(map[string]MQTT.MessageHandler)
	}
	if handler == nil {
		delete(subscriptions, topic)
	} else {
		subscriptions[topic] = handler
	}
}

func receiver(client MQTT.Client, message MQTT.Message) {
	Logger.Warn().Msgf("Received message on %v but no handler", message.Topic())
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Info().Msgf("Connect lost: %v", err)
}

// MqttInit (re)connects the shared client using the current config.
func MqttInit() error {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(Config.GetString("broker_uri"))
	opts.SetClientID(Config.GetString("id_base") + "_" + GetRandString((6)))
	opts.SetUsername(Config.GetString("username"))
	opts.SetPassword(Config.GetString("password"))
	opts.SetCleanSession(Config.GetBool("cleansess"))
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetWill(OnlineTopic(), "offline", 0, false)
	opts.OnConnectionLost = connectLostHandler
	opts.OnConnect = connectHandler
	opts.SetDefaultPublishHandler(receiver)

	if old := SetMQTTClient(nil); old != nil {
		Logger.Debug().Msg("Client exists - destroying")
		if old.IsConnected() {
			old.Disconnect(1000)
		}
	}

	c := MQTT.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to %s: %w", Config.GetString("broker_uri"), token.Error())
	}
	SetMQTTClient(c)
	return nil
}
