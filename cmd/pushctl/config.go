package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/pushwire/internal/protocol"
)

type scriptConfig struct {
	Topic       string
	Timeout     time.Duration
	MaxAttempts int
	Pushes      []scriptPush
}

type scriptPush struct {
	Event      string
	Status     string
	ReplyDelay time.Duration
	Silent     bool
}

func defaultScriptConfig() scriptConfig {
	return scriptConfig{
		Topic:       "room:loopback",
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	}
}

type fileConfig struct {
	Topic       string     `toml:"topic"`
	Timeout     string     `toml:"timeout"`
	MaxAttempts int        `toml:"max_attempts"`
	Pushes      []filePush `toml:"push"`
}

type filePush struct {
	Event      string `toml:"event"`
	Status     string `toml:"status"`
	ReplyDelay string `toml:"reply_delay"`
	Silent     bool   `toml:"silent"`
}

func loadScriptConfig(path string) (scriptConfig, error) {
	cfg := defaultScriptConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return scriptConfig{}, fmt.Errorf("load push script: %w", err)
	}

	if meta.IsDefined("topic") {
		topic := strings.TrimSpace(raw.Topic)
		if topic != "" {
			cfg.Topic = topic
		}
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return scriptConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("max_attempts") {
		if raw.MaxAttempts < 1 {
			return scriptConfig{}, fmt.Errorf("max_attempts must be at least 1, got %d", raw.MaxAttempts)
		}
		cfg.MaxAttempts = raw.MaxAttempts
	}

	pushes, err := parseScriptPushes(raw.Pushes)
	if err != nil {
		return scriptConfig{}, err
	}
	cfg.Pushes = pushes

	return cfg, nil
}

func parseScriptPushes(in []filePush) ([]scriptPush, error) {
	out := make([]scriptPush, 0, len(in))
	for i, p := range in {
		event := strings.TrimSpace(p.Event)
		if event == "" {
			return nil, fmt.Errorf("push %d: event is required", i)
		}
		if protocol.IsReservedEvent(event) {
			return nil, fmt.Errorf("push %d: event %q is reserved", i, event)
		}

		status := strings.TrimSpace(p.Status)
		if status == "" {
			status = protocol.StatusOK
		}

		var delay time.Duration
		if strings.TrimSpace(p.ReplyDelay) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(p.ReplyDelay))
			if err != nil {
				return nil, fmt.Errorf("push %d: parse reply_delay: %w", i, err)
			}
			delay = d
		}

		out = append(out, scriptPush{
			Event:      event,
			Status:     status,
			ReplyDelay: delay,
			Silent:     p.Silent,
		})
	}
	return out, nil
}
