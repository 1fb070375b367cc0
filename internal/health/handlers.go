package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker probes the stores a checkout cannot run without.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process is serving requests.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	DB    string `json:"db"`
	Redis string `json:"redis"`
}

// Ready probes Postgres and Redis with bounded timeouts. Any failing probe
// turns the response into a 503 with the failure detail in place of "ok".
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	report := readiness{DB: "ok", Redis: "ok"}
	if err := h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond)); err != nil {
		report.DB = err.Error()
	}
	if err := h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond)); err != nil {
		report.Redis = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if report.DB != "ok" || report.Redis != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(report)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
