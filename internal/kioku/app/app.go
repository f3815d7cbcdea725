// Package app assembles the Kioku subsystems into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bdobrica/Kioku/internal/kioku/config"
	"github.com/bdobrica/Kioku/internal/kioku/conversation"
	"github.com/bdobrica/Kioku/internal/kioku/memory"
	"github.com/bdobrica/Kioku/internal/kioku/observability"
)

// App owns the session store, the conversation service, the background
// sweeper, and the optional status HTTP server.
type App struct {
	config       config.Config
	registry     *prometheus.Registry
	metrics      *observability.Metrics
	store        *memory.Store
	sweeper      *memory.Sweeper
	service      *conversation.Service
	statusServer *StatusServer
	startedAt    time.Time
}

// Status is a point-in-time view of the runtime, shared by the status
// endpoint and the interactive stats command.
type Status struct {
	StartedAt time.Time
	Uptime    time.Duration
	Memory    memory.MemoryStats
	Counters  observability.Snapshot
	Health    observability.HealthStatus
}

// sweepObserver feeds sweep outcomes into the metrics and refreshes the
// active-sessions gauge from the store after each pass.
type sweepObserver struct {
	metrics *observability.Metrics
	store   *memory.Store
}

func (o *sweepObserver) RecordSweep(removed int) {
	o.metrics.RecordSweep(removed)
	o.metrics.SetActiveSessions(o.store.ActiveCount())
}

// New validates cfg and builds the application. Subsystems that are off by
// configuration (the sweeper, the status server) stay nil.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	// Each App carries its own registry so instruments never collide
	// across instances.
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(observability.MetricsConfig{
		MemoryLimitMB: uint64(cfg.MaxMemoryUsageMB),
	}, registry, slog.Default())

	store := memory.NewStore(memory.StoreConfig{
		MaxMessages: cfg.MaxMessagesPerSession,
		MaxSessions: cfg.MaxActiveSessions,
		Expiration:  cfg.SessionExpiration,
	}, slog.Default())
	slog.Info("memory store ready",
		"max_sessions", cfg.MaxActiveSessions,
		"max_messages_per_session", cfg.MaxMessagesPerSession,
		"session_expiration", cfg.SessionExpiration,
	)

	var sweeper *memory.Sweeper
	if cfg.EnableAutomaticCleanup {
		sweeper = memory.NewSweeper(store, memory.SweeperConfig{
			Interval:      cfg.CleanupInterval,
			Expiration:    cfg.SessionExpiration,
			MemoryLimitMB: uint64(cfg.MaxMemoryUsageMB),
		}, &sweepObserver{metrics: metrics, store: store}, slog.Default())
		slog.Info("automatic cleanup enabled", "interval", cfg.CleanupInterval)
	} else {
		slog.Info("automatic cleanup disabled; idle sessions are kept until cleared")
	}

	service := conversation.NewService(store, conversation.ServiceConfig{
		ContextWindow: cfg.MaxContextMessages,
	}, metrics, slog.Default())
	slog.Info("conversation service ready", "context_window", cfg.MaxContextMessages)

	a := &App{
		config:    cfg,
		registry:  registry,
		metrics:   metrics,
		store:     store,
		sweeper:   sweeper,
		service:   service,
		startedAt: time.Now(),
	}

	if cfg.MetricsAddr != "" {
		a.statusServer = NewStatusServer(cfg.MetricsAddr, a, registry)
		slog.Info("status server configured", "addr", cfg.MetricsAddr)
	}

	return a, nil
}

// Start brings up the background subsystems: the sweep loop and, when a
// metrics address is configured, the status HTTP server. It does not
// block. ctx bounds the lifetime of everything started here; Stop shuts
// the subsystems down before ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.statusServer != nil {
		if err := a.statusServer.Start(ctx); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	if a.sweeper != nil {
		go a.sweeper.Run(ctx)
	}
	slog.Info("kioku started")
	return nil
}

// Stop shuts down the background subsystems. Safe to call when Start was
// never called.
func (a *App) Stop() {
	if a.sweeper != nil {
		slog.Info("stopping sweeper")
		a.sweeper.Stop()
	}
	if a.statusServer != nil {
		slog.Info("stopping status server")
		a.statusServer.Stop()
	}
}

// Service returns the conversation service.
func (a *App) Service() *conversation.Service {
	return a.service
}

// Status reports the current runtime state.
func (a *App) Status() Status {
	return Status{
		StartedAt: a.startedAt,
		Uptime:    time.Since(a.startedAt),
		Memory:    a.store.MemoryStats(),
		Counters:  a.metrics.Snapshot(),
		Health:    a.metrics.Health(),
	}
}

// SweepNow runs one synchronous eviction pass and returns the number of
// sessions removed. Available even when automatic cleanup is disabled.
func (a *App) SweepNow() int {
	if a.sweeper != nil {
		return a.sweeper.SweepNow(time.Now())
	}
	removed := a.store.EvictInactive(time.Now().Add(-a.config.SessionExpiration))
	a.metrics.RecordSweep(removed)
	a.metrics.SetActiveSessions(a.store.ActiveCount())
	return removed
}
