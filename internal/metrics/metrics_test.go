package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"schedrun/internal/logging"
	"schedrun/internal/target"
)

func result(failed bool) target.Result {
	now := time.Now()
	res := target.Result{StartedAt: now.Add(-time.Second), FinishedAt: now}
	if failed {
		res.ExitCode = 1
	}
	return res
}

func TestCycleCounters(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logging.Nop())

	s.CycleFinished(result(false), false)
	s.CycleFinished(result(false), false)
	s.CycleFinished(result(true), true)

	if got := testutil.ToFloat64(s.cyclesTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.cyclesTotal.WithLabelValues("failure")); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.lastSuccess); got != 0 {
		t.Fatalf("last_success = %v, want 0 after a failure", got)
	}

	s.CycleFinished(result(false), false)
	if got := testutil.ToFloat64(s.lastSuccess); got != 1 {
		t.Fatalf("last_success = %v, want 1", got)
	}
}

func TestNextRunGauge(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logging.Nop())
	at := time.Now().Add(time.Hour)
	s.NextRun(at)
	if got := testutil.ToFloat64(s.nextRun); got != float64(at.Unix()) {
		t.Fatalf("next_run = %v, want %v", got, at.Unix())
	}
}

func TestHTTPEndpoint(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, logging.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	s.CycleFinished(result(false), false)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", s.ln.Addr()))
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "schedrun_cycles_total") {
		t.Fatal("exposition missing schedrun_cycles_total")
	}
}

func TestRefusesNonLoopback(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, logging.Nop())
	if err := s.Start(); err == nil {
		s.Stop(context.Background())
		t.Fatal("expected non-loopback bind to be refused")
	}
}
