// Package inspect serves the push ledger over a small admin HTTP surface.
package inspect

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/danmuck/pushwire/internal/observability"
	"github.com/danmuck/pushwire/internal/push"
)

var ErrListenAddrRequired = errors.New("inspect: listen addr required")

type Config struct {
	ListenAddr string
	Component  string
}

// Server exposes ledger snapshots, health, and prometheus metrics.
type Server struct {
	cfg      Config
	ledger   *push.Ledger
	router   *gin.Engine
	appeared time.Time
}

func NewServer(cfg Config, ledger *push.Ledger, logger zerolog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, ErrListenAddrRequired
	}
	if strings.TrimSpace(cfg.Component) == "" {
		cfg.Component = "pushwire-admin"
	}
	if ledger == nil {
		ledger = push.NewLedger()
	}

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		ledger:   ledger,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
