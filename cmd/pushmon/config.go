package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type monConfig struct {
	ListenAddr   string
	Topic        string
	Events       []string
	PushInterval time.Duration
	ReplyDelay   time.Duration
	Timeout      time.Duration
	SilentEvery  int
}

func defaultMonConfig() monConfig {
	return monConfig{
		ListenAddr:   "127.0.0.1:7040",
		Topic:        "room:monitor",
		Events:       []string{"heartbeat"},
		PushInterval: 2 * time.Second,
		ReplyDelay:   50 * time.Millisecond,
		Timeout:      time.Second,
		SilentEvery:  0,
	}
}

type fileConfig struct {
	ListenAddr   string   `toml:"listen_addr"`
	Topic        string   `toml:"topic"`
	Events       []string `toml:"events"`
	PushInterval string   `toml:"push_interval"`
	ReplyDelay   string   `toml:"reply_delay"`
	Timeout      string   `toml:"timeout"`
	SilentEvery  int      `toml:"silent_every"`
}

func loadMonConfig(path string) (monConfig, error) {
	cfg := defaultMonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return monConfig{}, fmt.Errorf("load pushmon config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.ListenAddr = addr
		}
	}

	if meta.IsDefined("topic") {
		topic := strings.TrimSpace(raw.Topic)
		if topic != "" {
			cfg.Topic = topic
		}
	}

	if meta.IsDefined("events") {
		events := normalizeEvents(raw.Events)
		if len(events) == 0 {
			return monConfig{}, fmt.Errorf("events must name at least one event")
		}
		cfg.Events = events
	}

	if meta.IsDefined("push_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PushInterval))
		if err != nil {
			return monConfig{}, fmt.Errorf("parse push_interval: %w", err)
		}
		cfg.PushInterval = d
	}

	if meta.IsDefined("reply_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReplyDelay))
		if err != nil {
			return monConfig{}, fmt.Errorf("parse reply_delay: %w", err)
		}
		cfg.ReplyDelay = d
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return monConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("silent_every") {
		if raw.SilentEvery < 0 {
			return monConfig{}, fmt.Errorf("silent_every must not be negative, got %d", raw.SilentEvery)
		}
		cfg.SilentEvery = raw.SilentEvery
	}

	return cfg, nil
}

func normalizeEvents(in []string) []string {
	out := make([]string, 0, len(in))
	for _, event := range in {
		v := strings.TrimSpace(event)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
