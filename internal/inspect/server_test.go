package inspect

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/pushwire/internal/protocol"
	"github.com/danmuck/pushwire/internal/push"
	"github.com/danmuck/pushwire/internal/testutil/testlog"
)

func newTestServer(t *testing.T, ledger *push.Ledger) *Server {
	t.Helper()
	s, err := NewServer(Config{ListenAddr: "127.0.0.1:0"}, ledger, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresListenAddr(t *testing.T) {
	testlog.Start(t)
	if _, err := NewServer(Config{}, nil, zerolog.Nop()); !errors.Is(err, ErrListenAddrRequired) {
		t.Fatalf("expected ErrListenAddrRequired, got %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	for _, path := range []string{"/health", "/ready"} {
		rec := get(t, s, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, rec.Code)
		}
	}
}

func TestListPushesReportsPending(t *testing.T) {
	testlog.Start(t)
	ledger := push.NewLedger()
	now := time.Now()
	ledger.Track(push.Entry{Ref: "1", Event: "shout", Topic: "room:lobby", QueuedAt: now})
	ledger.Track(push.Entry{Ref: "2", Event: "shout", Topic: "room:lobby", QueuedAt: now})
	ledger.Resolve("2", protocol.StatusOK, now)

	s := newTestServer(t, ledger)
	rec := get(t, s, "/v1/pushes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Pending int          `json:"pending"`
		Pushes  []push.Entry `json:"pushes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pending != 1 {
		t.Fatalf("pending = %d, want 1", body.Pending)
	}
	if len(body.Pushes) != 2 {
		t.Fatalf("pushes = %d, want 2", len(body.Pushes))
	}
}

func TestGetPushByRef(t *testing.T) {
	testlog.Start(t)
	ledger := push.NewLedger()
	ledger.Track(push.Entry{Ref: "42", Event: "shout", Topic: "room:lobby", QueuedAt: time.Now()})

	s := newTestServer(t, ledger)
	if rec := get(t, s, "/v1/pushes/42"); rec.Code != http.StatusOK {
		t.Fatalf("known ref: status %d", rec.Code)
	}
	if rec := get(t, s, "/v1/pushes/404"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ref: status %d", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty metrics body")
	}
}
