package conversation

import "time"

// Monitor receives activity signals from the conversation engine. The
// observability package provides the Prometheus-backed implementation;
// NopMonitor keeps the engine usable without one.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Monitor interface {
	// RecordCreated counts a newly created conversation record.
	RecordCreated()

	// RecordStored counts one stored message.
	RecordStored()

	// RecordContextBuild records one prompt composition and how long it took.
	RecordContextBuild(d time.Duration)

	// RecordSweep records one cleanup pass and how many sessions it removed.
	RecordSweep(removed int)

	// RecordError counts a failed operation, labelled by operation name.
	RecordError(op string)
}

// NopMonitor is a Monitor that discards every signal.
type NopMonitor struct{}

func (NopMonitor) RecordCreated() {}

func (NopMonitor) RecordStored() {}

func (NopMonitor) RecordContextBuild(time.Duration) {}

func (NopMonitor) RecordSweep(int) {}

func (NopMonitor) RecordError(string) {}

// Compile-time interface satisfaction check.
var _ Monitor = NopMonitor{}
