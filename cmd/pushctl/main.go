package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/pushwire/internal/convmem"
	"github.com/danmuck/pushwire/internal/diag"
	"github.com/danmuck/pushwire/internal/logging"
	"github.com/danmuck/pushwire/internal/push"
)

func main() {
	configPath := flag.String("config", "", "path to a push script (toml)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "pushctl: -config is required")
		os.Exit(2)
	}

	cfg, err := loadScriptConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pushctl: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "pushctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg scriptConfig) error {
	logger := logging.ConfigureRuntime("pushctl")
	log := diag.NewZerolog(logger)

	ledger := push.NewLedger()
	conv := convmem.New(convmem.Config{
		Topic:  cfg.Topic,
		Logger: log,
		Ledger: ledger,
	})

	failed := 0
	for _, script := range cfg.Pushes {
		if script.Silent {
			conv.Silence(script.Event)
		} else {
			conv.ScriptReply(script.Event, convmem.Reply{
				Status: script.Status,
				Delay:  script.ReplyDelay,
			})
		}

		resp, err := runOne(conv, cfg, script, log)
		if err != nil {
			failed++
			fmt.Printf("push %-20s FAILED  %v\n", script.Event, err)
			continue
		}
		fmt.Printf("push %-20s %s\n", script.Event, resp.Status)
	}

	entries := ledger.List()
	fmt.Printf("\nledger: %d tracked, %d pending\n", len(entries), ledger.PendingCount())
	for _, entry := range entries {
		fmt.Printf("  ref=%-4s event=%-20s attempts=%d status=%s\n",
			entry.Ref, entry.Event, entry.Attempts, entry.Status)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pushes failed", failed, len(cfg.Pushes))
	}
	return nil
}

func runOne(conv *convmem.Conversation, cfg scriptConfig, script scriptPush, log diag.Logger) (push.Response, error) {
	sentAt := time.Now()
	p, err := push.New(conv, push.Config{
		Event: script.Event,
		Payload: push.StructuredPayload(func() any {
			return map[string]any{"issued_at": sentAt.Format(time.RFC3339Nano)}
		}),
		Timeout: cfg.Timeout,
		Logger:  log,
	})
	if err != nil {
		return push.Response{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), budgetFor(cfg))
	defer cancel()

	resender := push.NewResender(p, push.DefaultRetryPolicy(), cfg.MaxAttempts, log)
	resp, err := resender.Run(ctx)
	if err != nil {
		if errors.Is(err, push.ErrReplyTimeout) {
			return resp, fmt.Errorf("no reply within %s: %w", cfg.Timeout, err)
		}
		return resp, err
	}
	return resp, nil
}

// budgetFor bounds a whole resend run, retries and backoff included.
func budgetFor(cfg scriptConfig) time.Duration {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*(cfg.Timeout+push.DefaultRetryPolicy().MaxDelay) + time.Second
}
