// Package traffic keeps a short sliding window of request outcomes for the
// health check's error-rate rule and the window gauges on /metrics.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how far back any window may look.
const retention = 5 * time.Minute

// Outcome is the result of one forecast lookup that reached the provider path.
type Outcome int

const (
	Success Outcome = iota
	// Failure is an upstream problem: network, provider 5xx/401/429, bad body.
	Failure
	// Denied is a request rejected by the inbound rate limiter.
	Denied
)

var defaultTracker = NewTracker()

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// ErrorRate reports failures and successes+failures inside window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// DenialCount reports rate-limit denials inside window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// Reset clears the process-wide tracker. Tests only.
func Reset() {
	defaultTracker.Reset()
}

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for _, e := range t.events {
		if e.at.Before(cutoff) {
			continue
		}
		switch e.outcome {
		case Failure:
			errors++
			total++
		case Success:
			total++
		}
	}
	return errors, total
}

func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, e := range t.events {
		if e.outcome == Denied && !e.at.Before(cutoff) {
			n++
		}
	}
	return n
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than retention. Events are appended in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
