package observability

import (
	"runtime"
)

// Degradation thresholds for the health verdict.
const (
	// heapHeadroom is how far past the configured memory limit the heap may
	// grow before the verdict degrades.
	heapHeadroom = 1.2

	// errorRateLimit is the tolerated ratio of failed operations.
	errorRateLimit = 0.05

	// errorRateMinOps is the operation count below which the error rate is
	// not judged.
	errorRateMinOps = 100
)

// HealthStatus is the engine's liveness verdict with the numbers behind it.
type HealthStatus struct {
	Status        string  `json:"status"` // "up" or "degraded"
	Reason        string  `json:"reason,omitempty"`
	HeapAllocMB   uint64  `json:"heap_alloc_mb"`
	MemoryLimitMB uint64  `json:"memory_limit_mb"`
	ErrorRate     float64 `json:"error_rate"`
}

// Health computes the current verdict. The engine reports "degraded" when
// the heap has grown past 1.2x the configured memory limit, or when more
// than 5% of observed operations failed across at least 100 operations.
func (m *Metrics) Health() HealthStatus {
	heap := m.heapMB()
	status := HealthStatus{
		Status:        "up",
		HeapAllocMB:   heap,
		MemoryLimitMB: m.config.MemoryLimitMB,
	}

	ops := m.stored.Load() + m.builds.Load() + m.errs.Load()
	if ops > 0 {
		status.ErrorRate = float64(m.errs.Load()) / float64(ops)
	}

	switch {
	case float64(heap) > float64(m.config.MemoryLimitMB)*heapHeadroom:
		status.Status = "degraded"
		status.Reason = "heap over budget"
	case ops >= errorRateMinOps && status.ErrorRate > errorRateLimit:
		status.Status = "degraded"
		status.Reason = "elevated error rate"
	}
	return status
}

// heapAllocMB returns the current heap allocation in whole megabytes.
func heapAllocMB() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc / (1 << 20)
}
