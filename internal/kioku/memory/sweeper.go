package memory

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// SweepObserver receives the outcome of each sweep. Implementations must
// be safe for concurrent use.
type SweepObserver interface {
	RecordSweep(removed int)
}

// SweeperConfig holds configuration for the Sweeper.
type SweeperConfig struct {
	// Interval is how often the sweep runs. Default: 30 minutes.
	Interval time.Duration

	// Expiration is the idle TTL. Sessions untouched for longer are
	// removed on each sweep. Default: 2 hours.
	Expiration time.Duration

	// MemoryLimitMB is the heap budget. When the process heap exceeds it
	// after the normal pass, an aggressive half-window pass runs and a GC
	// cycle is forced. Default: 100.
	MemoryLimitMB uint64
}

// DefaultSweeperConfig returns a SweeperConfig with the documented defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:      30 * time.Minute,
		Expiration:    2 * time.Hour,
		MemoryLimitMB: 100,
	}
}

// Sweeper periodically evicts idle sessions from a Store, keeping the TTL
// enforcement off the request path.
type Sweeper struct {
	store    *Store
	config   SweeperConfig
	observer SweepObserver
	logger   *slog.Logger
	heapMB   func() uint64 // heap probe, swappable in tests

	stopMu sync.Mutex
	stopCh chan struct{}
}

// NewSweeper creates a sweeper for the given store. Non-positive config
// fields fall back to their defaults. The observer may be nil. If logger
// is nil, the default slog logger is used.
func NewSweeper(store *Store, cfg SweeperConfig, observer SweepObserver, logger *slog.Logger) *Sweeper {
	def := DefaultSweeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = def.Expiration
	}
	if cfg.MemoryLimitMB == 0 {
		cfg.MemoryLimitMB = def.MemoryLimitMB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		config:   cfg,
		observer: observer,
		logger:   logger,
		heapMB:   heapAllocMB,
	}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled or
// Stop is called. Call this in a goroutine.
func (w *Sweeper) Run(ctx context.Context) {
	w.stopMu.Lock()
	w.stopCh = make(chan struct{})
	w.stopMu.Unlock()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.SweepNow(time.Now())
		}
	}
}

// Stop signals the sweep loop to stop. Safe to call multiple times.
func (w *Sweeper) Stop() {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if w.stopCh != nil {
		select {
		case <-w.stopCh:
			// Already closed.
		default:
			close(w.stopCh)
		}
	}
}

// SweepNow runs one synchronous sweep: the normal expiration pass, then,
// when the heap is over budget, an aggressive half-window pass followed by
// a forced GC cycle. Returns the total number of sessions removed.
func (w *Sweeper) SweepNow(now time.Time) int {
	removed := w.store.EvictInactive(now.Add(-w.config.Expiration))

	if heap := w.heapMB(); heap > w.config.MemoryLimitMB {
		aggressive := w.store.EvictInactive(now.Add(-w.config.Expiration / 2))
		runtime.GC()
		w.logger.Warn("heap over budget, aggressive sweep",
			"heap_mb", heap,
			"limit_mb", w.config.MemoryLimitMB,
			"evicted", aggressive,
		)
		removed += aggressive
	}

	if removed > 0 {
		w.logger.Info("sweep complete",
			"evicted", removed,
			"active_sessions", w.store.ActiveCount(),
		)
	}
	if w.observer != nil {
		w.observer.RecordSweep(removed)
	}
	return removed
}

// heapAllocMB returns the current heap allocation in megabytes.
func heapAllocMB() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc / (1 << 20)
}
