// Package metrics holds the Prometheus collectors for the supervisor and the
// bridge, and an optional loopback listener that exposes them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auroradesk/aurora-shell/internal/logging"
)

// Bridge request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeUnreachable = "unreachable"
)

// Metrics holds all shell collectors. A nil *Metrics is valid and records
// nothing, so components can be built without one.
type Metrics struct {
	Registry *prometheus.Registry

	// Bridge metrics
	BridgeRequests       *prometheus.CounterVec
	BridgeDuration       *prometheus.HistogramVec
	BridgeFallbackWrites prometheus.Counter

	// Supervisor metrics
	Spawns        prometheus.Counter
	SpawnFailures prometheus.Counter
	Exits         *prometheus.CounterVec
	Overlaps      prometheus.Counter
	Running       prometheus.Gauge
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		BridgeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aurora_bridge_requests_total",
				Help: "Bridge operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		BridgeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aurora_bridge_request_duration_seconds",
				Help:    "Bridge round-trip duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		BridgeFallbackWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aurora_bridge_fallback_writes_total",
				Help: "Client log entries written to the local fallback file",
			},
		),

		Spawns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aurora_supervisor_spawns_total",
				Help: "Backend processes spawned",
			},
		),
		SpawnFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aurora_supervisor_spawn_failures_total",
				Help: "Backend spawn attempts that failed",
			},
		),
		Exits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aurora_supervisor_exits_total",
				Help: "Backend exits by exit code class",
			},
			[]string{"class"},
		),
		Overlaps: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aurora_supervisor_overlaps_total",
				Help: "Starts observed while a previous generation was still terminating",
			},
		),
		Running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aurora_supervisor_backend_running",
				Help: "1 when a backend handle is held",
			},
		),
	}
}

// ObserveBridge records one bridge operation.
func (m *Metrics) ObserveBridge(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BridgeRequests.WithLabelValues(operation, outcome).Inc()
	m.BridgeDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// FallbackWrite counts one fallback log line.
func (m *Metrics) FallbackWrite() {
	if m == nil {
		return
	}
	m.BridgeFallbackWrites.Inc()
}

// SpawnSucceeded counts a spawn and marks the backend running.
func (m *Metrics) SpawnSucceeded() {
	if m == nil {
		return
	}
	m.Spawns.Inc()
	m.Running.Set(1)
}

// SpawnFailed counts a failed spawn.
func (m *Metrics) SpawnFailed() {
	if m == nil {
		return
	}
	m.SpawnFailures.Inc()
}

// HandleCleared marks the backend as not running.
func (m *Metrics) HandleCleared() {
	if m == nil {
		return
	}
	m.Running.Set(0)
}

// Exited counts a backend exit.
func (m *Metrics) Exited(code int) {
	if m == nil {
		return
	}
	m.Exits.WithLabelValues(ExitClass(code)).Inc()
}

// Overlap counts a start that raced a terminating generation.
func (m *Metrics) Overlap() {
	if m == nil {
		return
	}
	m.Overlaps.Inc()
}

// ExitClass buckets exit codes so label cardinality stays fixed.
func ExitClass(code int) string {
	switch {
	case code == 0:
		return "clean"
	case code < 0:
		return "signal"
	case code < 128:
		return "error"
	default:
		return "code_" + strconv.Itoa(code/64*64)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. Callers validate
// that addr is loopback before calling.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
