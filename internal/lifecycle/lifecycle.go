// Package lifecycle holds the process phase read by the health check.
package lifecycle

import "sync/atomic"

// Phase is where the process is in its run.
type Phase int32

const (
	Starting Phase = iota
	Serving
	// Draining: a shutdown signal arrived; in-flight requests finish, health reports 503.
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// Set records the current phase.
func Set(p Phase) {
	phase.Store(int32(p))
}

// Current returns the recorded phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return Current() == Draining
}
