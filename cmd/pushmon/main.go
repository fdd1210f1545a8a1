// Command pushmon runs a looping push workload against an in-memory
// conversation and serves the resulting ledger on the admin HTTP surface.
// Every silent_every'th push gets no reply, which exercises the timeout path
// so the dashboard has something to show.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/pushwire/internal/convmem"
	"github.com/danmuck/pushwire/internal/diag"
	"github.com/danmuck/pushwire/internal/inspect"
	"github.com/danmuck/pushwire/internal/logging"
	"github.com/danmuck/pushwire/internal/protocol"
	"github.com/danmuck/pushwire/internal/push"
)

func main() {
	configPath := flag.String("config", "", "path to a pushmon config (toml), defaults apply when omitted")
	flag.Parse()

	cfg := defaultMonConfig()
	if *configPath != "" {
		loaded, err := loadMonConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pushmon: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "pushmon: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg monConfig) error {
	logger := logging.ConfigureRuntime("pushmon")
	log := diag.NewZerolog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger := push.NewLedger()
	conv := convmem.New(convmem.Config{
		Topic:  cfg.Topic,
		Logger: log,
		Ledger: ledger,
	})
	for _, event := range cfg.Events {
		conv.ScriptReply(event, convmem.Reply{
			Status: protocol.StatusOK,
			Delay:  cfg.ReplyDelay,
		})
	}

	srv, err := inspect.NewServer(inspect.Config{
		ListenAddr: cfg.ListenAddr,
		Component:  "pushmon",
	}, ledger, logger)
	if err != nil {
		return err
	}

	go workload(ctx, cfg, conv, log)

	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str("topic", cfg.Topic).
		Strs("events", cfg.Events).
		Msg("pushmon up")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func workload(ctx context.Context, cfg monConfig, conv *convmem.Conversation, log diag.Logger) {
	ticker := time.NewTicker(cfg.PushInterval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		seq++
		event := cfg.Events[seq%len(cfg.Events)]
		if cfg.SilentEvery > 0 && seq%cfg.SilentEvery == 0 {
			conv.Silence(event)
		} else {
			conv.ScriptReply(event, convmem.Reply{
				Status: protocol.StatusOK,
				Delay:  cfg.ReplyDelay,
			})
		}

		go fireOne(ctx, cfg, conv, event, seq, log)
	}
}

func fireOne(ctx context.Context, cfg monConfig, conv *convmem.Conversation, event string, seq int, log diag.Logger) {
	issuedAt := time.Now()
	p, err := push.New(conv, push.Config{
		Event: event,
		Payload: push.StructuredPayload(func() any {
			return map[string]any{
				"seq":       seq,
				"issued_at": issuedAt.Format(time.RFC3339Nano),
			}
		}),
		Timeout: cfg.Timeout,
		Logger:  log,
	})
	if err != nil {
		log.Warnf("pushmon: build push %q: %v", event, err)
		return
	}

	p.Send()
	awaitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout+time.Second)
	defer cancel()
	if _, err := p.Await(awaitCtx); err != nil {
		log.Debugf("pushmon: push %q seq=%d: %v", event, seq, err)
	}
}
