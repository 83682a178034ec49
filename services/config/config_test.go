// services/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rproc-go/bus"
)

func waitSection(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for config section")
		return nil
	}
}

func TestPublishDefaultDeployment(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("config")
	s := NewService("", zerolog.Nop())

	if err := s.publishConfig(conn); err != nil {
		t.Fatalf("publishConfig: %v", err)
	}

	// The rproc section is retained for late subscribers.
	sub := b.NewConnection("test").Subscribe(bus.T("config", "rproc"))
	m := waitSection(t, sub)
	section, ok := m.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", m.Payload)
	}
	if _, ok := section["subsystems"]; !ok {
		t.Error("rproc section missing subsystems")
	}
}

func TestPublishFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	raw := "rproc:\n  subsystems: []\nheartbeat:\n  interval: 5\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus(4)
	s := NewService(path, zerolog.Nop())
	if err := s.publishConfig(b.NewConnection("config")); err != nil {
		t.Fatalf("publishConfig: %v", err)
	}

	conn := b.NewConnection("test")
	if m := waitSection(t, conn.Subscribe(bus.T("config", "rproc"))); m == nil {
		t.Fatal("rproc section not published")
	}
	if m := waitSection(t, conn.Subscribe(bus.T("config", "heartbeat"))); m == nil {
		t.Fatal("heartbeat section not published")
	}
}

func TestMissingFileFails(t *testing.T) {
	b := bus.NewBus(4)
	s := NewService(filepath.Join(t.TempDir(), "nope.yaml"), zerolog.Nop())
	if err := s.publishConfig(b.NewConnection("config")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
