package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
)

func TestDemoRun(t *testing.T) {
	demo, err := NewDemo(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("NewDemo: %v", err)
	}
	demo.randn = func(n int) int { return 2 }

	if err := demo.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := []struct {
		id   int
		data string
	}{
		{1, "Light state changed to ON"},
		{1, "Light state changed to OFF"},
		{2, "Target temperature set to 24.5"},
		{3, "Recording started"},
		{2, "Temperature: 24.0"},
		{3, "Motion detected"},
		{2, "Temperature: 24.0"},
		{2, "Temperature: 24.0"},
		{3, "Motion detected"},
	}
	inbox := demo.Phone.Inbox()
	if len(inbox) != len(expected) {
		t.Fatalf("Expected %d events, got %d: %v", len(expected), len(inbox), inbox)
	}
	for i, want := range expected {
		ev := inbox[i]
		if ev.DeviceID() != want.id || ev.Payload() != want.data || ev.Direction() != event.ToApp {
			t.Errorf("event %d = %s, expected device %d %q", i, ev.Describe(), want.id, want.data)
		}
	}

	if n := len(demo.User.Responses()); n != len(expected) {
		t.Errorf("user heard %d responses, expected %d", n, len(expected))
	}

	s := demo.Coord.Stats()
	if s.Misses != 0 || s.Failures != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
	// four commands plus nine device reports
	if s.Dispatched != 13 {
		t.Errorf("Dispatched = %d, expected 13", s.Dispatched)
	}
}

func TestDemoCancelled(t *testing.T) {
	demo, err := NewDemo(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("NewDemo: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := demo.Run(ctx); err == nil {
		t.Error("Run should stop on a cancelled context")
	}
}

func TestDemoReport(t *testing.T) {
	demo, err := NewDemo(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("NewDemo: %v", err)
	}
	demo.User.MakeAction(1, "TOGGLE")
	demo.User.MakeAction(99, "TOGGLE")

	var buf bytes.Buffer
	if err := demo.Report(&buf); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Living Room Light",
		"{type: APP_EVENT, deviceId: 1, direction: TO_APP, data: Light state changed to ON}",
		"misses=1",
		"Alex heard 1 responses",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
