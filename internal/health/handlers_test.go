package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/backend-adorn/internal/health"
)

type probeStub struct {
	db    error
	redis error
}

func (p probeStub) PingDB(context.Context, time.Duration) error    { return p.db }
func (p probeStub) PingRedis(context.Context, time.Duration) error { return p.redis }

func ready(t *testing.T, h health.Handler) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var report map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode readiness report: %v", err)
	}
	return rr, report
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("live probe: code=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestReadyAllProbesHealthy(t *testing.T) {
	rr, report := ready(t, health.Handler{Checker: probeStub{}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if report["db"] != "ok" || report["redis"] != "ok" {
		t.Fatalf("unexpected report %#v", report)
	}
}

func TestReadyReportsFailingStore(t *testing.T) {
	rr, report := ready(t, health.Handler{Checker: probeStub{db: errors.New("dial tcp: refused")}})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
	if report["db"] == "ok" {
		t.Fatal("db failure not surfaced in report")
	}
	if report["redis"] != "ok" {
		t.Fatalf("redis should still report ok, got %q", report["redis"])
	}
}

func TestReadyWithoutChecker(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}
