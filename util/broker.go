package util

import (
	"fmt"
	"log/slog"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Broker is an in-process MQTT broker for installs without one. The hub's
// own paho client connects to it like any other client.
type Broker struct {
	server  *mochi.Server
	address string
	nextSub int
}

func NewBroker(address string) *Broker {
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		// mochi logs through slog; route it into the zerolog output
		Logger: slog.New(slog.NewTextHandler(Logger, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	return &Broker{server: server, address: address, nextSub: 1}
}

func brokerAuth() *auth.Options {
	username := Config.GetString("username")
	if username == "" {
		return &auth.Options{Ledger: &auth.Ledger{
			Auth: auth.AuthRules{{Allow: true}},
			ACL:  auth.ACLRules{{Filters: auth.Filters{"#": auth.ReadWrite}}},
		}}
	}
	return &auth.Options{Ledger: &auth.Ledger{
		Auth: auth.AuthRules{
			{Remote: "127.0.0.1:*", Allow: true}, // local clients need no credentials
			{Username: auth.RString(username), Password: auth.RString(Config.GetString("password")), Allow: true},
		},
		ACL: auth.ACLRules{
			{Remote: "127.0.0.1:*"},
			{Username: auth.RString(username), Filters: auth.Filters{"#": auth.ReadWrite}},
		},
	}}
}

// Start adds the auth hook and a TCP listener, then serves in the background.
func (b *Broker) Start() error {
	if err := b.server.AddHook(new(auth.Hook), brokerAuth()); err != nil {
		return fmt.Errorf("adding auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "hub-tcp", Address: b.address})
	if err := b.server.AddListener(tcp); err != nil {
		return fmt.Errorf("listening on %s: %w", b.address, err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			Logger.Error().Msgf("embedded broker stopped: %v", err)
		}
	}()
	Logger.Info().Msgf("embedded broker listening on %s", b.address)
	return nil
}

// Publish injects a message as the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.server.Publish(topic, payload, retain, 0)
}

// Subscribe registers an inline subscription on the broker itself.
func (b *Broker) Subscribe(filter string, fn func(topic string, payload []byte)) error {
	id := b.nextSub
	b.nextSub++
	return b.server.Subscribe(filter, id, func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
		fn(pk.TopicName, pk.Payload)
	})
}

func (b *Broker) Close() error {
	return b.server.Close()
}
