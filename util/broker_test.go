package util

import (
	"testing"
	"time"
)

func TestBrokerInlinePublishSubscribe(t *testing.T) {
	Config.Set("username", "")
	broker := NewBroker("127.0.0.1:0")
	if err := broker.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer func() { _ = broker.Close() }() //nolint:errcheck // test cleanup

	received := make(chan string, 1)
	if err := broker.Subscribe("hab/devices/+/state", func(topic string, payload []byte) {
		received <- topic + "=" + string(payload)
	}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if err := broker.Publish("hab/devices/1/state", []byte("Light state changed to ON"), false); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case got := <-received:
		if got != "hab/devices/1/state=Light state changed to ON" {
			t.Errorf("received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inline subscriber never received the message")
	}
}

func TestBrokerAuthRules(t *testing.T) {
	Config.Set("username", "")
	open := brokerAuth()
	if len(open.Ledger.Auth) != 1 || !bool(open.Ledger.Auth[0].Allow) {
		t.Errorf("without a username every client should be allowed, got %+v", open.Ledger.Auth)
	}

	Config.Set("username", "hub")
	Config.Set("password", "secret")
	defer Config.Set("username", "")
	defer Config.Set("password", "")

	locked := brokerAuth()
	if len(locked.Ledger.Auth) != 2 {
		t.Fatalf("expected local and credential rules, got %d", len(locked.Ledger.Auth))
	}
	if locked.Ledger.Auth[1].Username != "hub" || locked.Ledger.Auth[1].Password != "secret" {
		t.Errorf("credential rule = %+v", locked.Ledger.Auth[1])
	}
}
