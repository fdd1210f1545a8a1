package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMonConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "127.0.0.1:9999"
topic = "room:ops"
events = ["heartbeat", " shout ", ""]
push_interval = "500ms"
timeout = "250ms"
silent_every = 4
`)

	cfg, err := loadMonConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.Topic != "room:ops" {
		t.Fatalf("unexpected topic: %q", cfg.Topic)
	}
	if len(cfg.Events) != 2 || cfg.Events[1] != "shout" {
		t.Fatalf("unexpected events: %+v", cfg.Events)
	}
	if cfg.PushInterval != 500*time.Millisecond {
		t.Fatalf("unexpected push interval: %v", cfg.PushInterval)
	}
	if cfg.ReplyDelay != 50*time.Millisecond {
		t.Fatalf("expected default reply delay, got %v", cfg.ReplyDelay)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
	if cfg.SilentEvery != 4 {
		t.Fatalf("unexpected silent_every: %d", cfg.SilentEvery)
	}
}

func TestLoadMonConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := loadMonConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := defaultMonConfig()
	if cfg.ListenAddr != want.ListenAddr || cfg.Topic != want.Topic || cfg.PushInterval != want.PushInterval {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadMonConfigRejectsEmptyEvents(t *testing.T) {
	path := writeConfig(t, `
events = ["", "  "]
`)
	if _, err := loadMonConfig(path); err == nil {
		t.Fatalf("expected events error")
	}
}

func TestLoadMonConfigBadDuration(t *testing.T) {
	path := writeConfig(t, `
push_interval = "fast"
`)
	if _, err := loadMonConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMonConfigNegativeSilentEvery(t *testing.T) {
	path := writeConfig(t, `
silent_every = -1
`)
	if _, err := loadMonConfig(path); err == nil {
		t.Fatalf("expected silent_every error")
	}
}
