// Package metrics exposes loop counters over an optional Prometheus
// HTTP listener. The collector half doubles as the runner's Monitor.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schedrun/internal/logging"
	"schedrun/internal/target"
)

type Config struct {
	Enabled bool
	Addr    string
	// Non-loopback binds are refused unless explicitly allowed; the
	// endpoint is unauthenticated.
	AllowNonLoopback bool
}

type Service struct {
	mu  sync.Mutex
	log logging.Logger
	cfg Config

	reg *prometheus.Registry
	ln  net.Listener
	srv *http.Server

	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	nextRun       prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

func New(cfg Config, log logging.Logger) *Service {
	reg := prometheus.NewRegistry()

	s := &Service{
		log: log,
		cfg: cfg,
		reg: reg,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedrun_cycles_total",
			Help: "Completed cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedrun_cycle_duration_seconds",
			Help:    "Wall time of target command executions.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		nextRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedrun_next_run_timestamp_seconds",
			Help: "Unix time of the next scheduled run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedrun_last_cycle_success",
			Help: "1 if the most recent cycle succeeded, 0 otherwise.",
		}),
	}
	reg.MustRegister(s.cyclesTotal, s.cycleDuration, s.nextRun, s.lastSuccess)
	return s
}

// ---- runner.Monitor ----

func (s *Service) CycleStarted(time.Time) {}

func (s *Service) CycleFinished(res target.Result, tolerated bool) {
	result := "success"
	if res.Failed() {
		result = "failure"
	}
	s.cyclesTotal.WithLabelValues(result).Inc()
	s.cycleDuration.Observe(res.Duration().Seconds())
	if res.Failed() {
		s.lastSuccess.Set(0)
	} else {
		s.lastSuccess.Set(1)
	}
}

func (s *Service) NextRun(at time.Time) {
	s.nextRun.Set(float64(at.Unix()))
}

// ---- HTTP listener ----

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:9090"
	}
	if !s.cfg.AllowNonLoopback && !isLoopbackAddr(addr) {
		return errors.New("metrics: non-loopback addr requires allow_non_loopback")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadTimeout: 10 * time.Second}

	s.ln = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", logging.Err(err))
		}
	}()

	s.log.Info("metrics listening", logging.String("addr", ln.Addr().String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
