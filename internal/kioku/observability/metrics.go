package observability

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bdobrica/Kioku/internal/kioku/conversation"
	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

// slowBuildThreshold is the context build duration above which a warning
// is logged.
const slowBuildThreshold = time.Second

// MetricsConfig holds configuration for the Metrics monitor.
type MetricsConfig struct {
	// Namespace prefixes every instrument name. Default: "kioku".
	Namespace string

	// MemoryLimitMB is the heap budget the health verdict reports against.
	// Default: 100.
	MemoryLimitMB uint64
}

// Metrics implements the conversation engine's Monitor with Prometheus
// instruments. Alongside the instruments it keeps atomic mirrors of the
// counts, so the health and status endpoints can read the numbers back
// without scraping their own process.
type Metrics struct {
	ConversationsCreated prometheus.Counter
	MessagesStored       prometheus.Counter
	ContextBuilds        prometheus.Counter
	SweepRuns            prometheus.Counter
	Errors               *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge
	ContextBuildDuration prometheus.Histogram

	config MetricsConfig
	logger *slog.Logger
	heapMB func() uint64 // heap probe, swappable in tests

	created       atomic.Int64
	stored        atomic.Int64
	builds        atomic.Int64
	buildNanos    atomic.Int64
	maxBuildNanos atomic.Int64
	sweepRuns     atomic.Int64
	sweptSessions atomic.Int64
	lastSweepUnix atomic.Int64
	errs          atomic.Int64
}

// NewMetrics creates a Metrics monitor and registers its instruments with
// reg. If reg is nil, the default Prometheus registerer is used; if logger
// is nil, the default slog logger is used.
func NewMetrics(cfg MetricsConfig, reg prometheus.Registerer, logger *slog.Logger) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "kioku"
	}
	if cfg.MemoryLimitMB == 0 {
		cfg.MemoryLimitMB = 100
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	factory := promauto.With(reg)
	return &Metrics{
		ConversationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "conversations_created_total",
			Help:      "Conversation records created.",
		}),
		MessagesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "messages_stored_total",
			Help:      "Messages stored across all sessions.",
		}),
		ContextBuilds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "context_builds_total",
			Help:      "Context-enriched prompts composed.",
		}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "sweep_runs_total",
			Help:      "Cleanup sweeps executed.",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "errors_total",
			Help:      "Failed operations by operation name.",
		}, []string{"op"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "active_sessions",
			Help:      "Number of tracked conversation sessions.",
		}),
		ContextBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "context_build_duration_ms",
			Help:      "Context build duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		config: cfg,
		logger: logger,
		heapMB: heapAllocMB,
	}
}

// RecordCreated counts a newly created conversation record.
func (m *Metrics) RecordCreated() {
	m.ConversationsCreated.Inc()
	m.created.Add(1)
}

// RecordStored counts one stored message.
func (m *Metrics) RecordStored() {
	m.MessagesStored.Inc()
	m.stored.Add(1)
}

// RecordContextBuild records one prompt composition and its duration.
// Builds slower than a second are logged as warnings.
func (m *Metrics) RecordContextBuild(d time.Duration) {
	m.ContextBuilds.Inc()
	m.ContextBuildDuration.Observe(float64(d.Milliseconds()))

	m.builds.Add(1)
	m.buildNanos.Add(d.Nanoseconds())
	for {
		prev := m.maxBuildNanos.Load()
		if d.Nanoseconds() <= prev || m.maxBuildNanos.CompareAndSwap(prev, d.Nanoseconds()) {
			break
		}
	}

	if d > slowBuildThreshold {
		m.logger.Warn("slow context build", "elapsed_ms", d.Milliseconds())
	}
}

// RecordSweep records one cleanup pass and how many sessions it removed.
func (m *Metrics) RecordSweep(removed int) {
	m.SweepRuns.Inc()
	m.sweepRuns.Add(1)
	m.sweptSessions.Add(int64(removed))
	m.lastSweepUnix.Store(time.Now().Unix())
}

// RecordError counts a failed operation, labelled by operation name.
func (m *Metrics) RecordError(op string) {
	m.Errors.WithLabelValues(op).Inc()
	m.errs.Add(1)
}

// SetActiveSessions updates the tracked-session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// Snapshot is a point-in-time view of the engine counters and timing
// aggregates.
type Snapshot struct {
	ConversationsCreated int64     `json:"conversations_created"`
	MessagesStored       int64     `json:"messages_stored"`
	ContextBuilds        int64     `json:"context_builds"`
	AvgBuildMS           float64   `json:"avg_build_ms"`
	MaxBuildMS           int64     `json:"max_build_ms"`
	SweepRuns            int64     `json:"sweep_runs"`
	SessionsSwept        int64     `json:"sessions_swept"`
	LastSweep            time.Time `json:"last_sweep"`
	Errors               int64     `json:"errors"`
}

// Snapshot returns the current counter values and timing aggregates.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		ConversationsCreated: m.created.Load(),
		MessagesStored:       m.stored.Load(),
		ContextBuilds:        m.builds.Load(),
		MaxBuildMS:           m.maxBuildNanos.Load() / int64(time.Millisecond),
		SweepRuns:            m.sweepRuns.Load(),
		SessionsSwept:        m.sweptSessions.Load(),
		Errors:               m.errs.Load(),
	}
	if snap.ContextBuilds > 0 {
		total := time.Duration(m.buildNanos.Load())
		snap.AvgBuildMS = float64(total.Microseconds()) / float64(snap.ContextBuilds) / 1000
	}
	if unix := m.lastSweepUnix.Load(); unix > 0 {
		snap.LastSweep = time.Unix(unix, 0).UTC()
	}
	return snap
}

// MetricsHandler returns the HTTP handler that serves g in the Prometheus
// exposition format. If g is nil, the default registry is served.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Compile-time interface satisfaction checks.
var (
	_ conversation.Monitor = (*Metrics)(nil)
	_ memory.SweepObserver = (*Metrics)(nil)
)
