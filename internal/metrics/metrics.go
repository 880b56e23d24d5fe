// Package metrics provides atomic counters for suggestion daemon
// observability. Counters are lock-free (sync/atomic) and safe for
// concurrent use across daemon goroutines.
package metrics

import "sync/atomic"

// Counters holds the daemon's observability counters.
type Counters struct {
	Requests         atomic.Int64 // total suggestion requests
	EmptyQueries     atomic.Int64 // requests rejected with an empty normalized query
	PrimaryHits      atomic.Int64 // requests where the primary flow produced completions
	FallbackRuns     atomic.Int64 // fallback flow invocations
	SecondaryRuns    atomic.Int64 // secondary flow invocations
	LeafFailures     atomic.Int64 // leaf algorithms returning failure
	LatchTimeouts    atomic.Int64 // group latch waits that timed out
	RescoreDiscards  atomic.Int64 // rescorer contributions discarded for length mismatch
	InstantEnabled   atomic.Int64 // responses with instant search enabled
	FalconMisses     atomic.Int64 // completions dropped because the falcon had no record
	RemoteBreakerOpn atomic.Int64 // remote falcon lookups rejected by the open breaker
	LatencySumMs     atomic.Int64 // cumulative request latency for average calculation
}

// Global is the process-wide metrics singleton.
var Global = &Counters{}

// Snapshot returns a point-in-time copy of all counters. Per-field
// consistency only, which is acceptable for observability.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests":            c.Requests.Load(),
		"empty_queries":       c.EmptyQueries.Load(),
		"primary_hits":        c.PrimaryHits.Load(),
		"fallback_runs":       c.FallbackRuns.Load(),
		"secondary_runs":      c.SecondaryRuns.Load(),
		"leaf_failures":       c.LeafFailures.Load(),
		"latch_timeouts":      c.LatchTimeouts.Load(),
		"rescore_discards":    c.RescoreDiscards.Load(),
		"instant_enabled":     c.InstantEnabled.Load(),
		"falcon_misses":       c.FalconMisses.Load(),
		"remote_breaker_open": c.RemoteBreakerOpn.Load(),
		"latency_sum_ms":      c.LatencySumMs.Load(),
	}
}

// Reset zeroes all counters. Useful for test isolation.
func (c *Counters) Reset() {
	c.Requests.Store(0)
	c.EmptyQueries.Store(0)
	c.PrimaryHits.Store(0)
	c.FallbackRuns.Store(0)
	c.SecondaryRuns.Store(0)
	c.LeafFailures.Store(0)
	c.LatchTimeouts.Store(0)
	c.RescoreDiscards.Store(0)
	c.InstantEnabled.Store(0)
	c.FalconMisses.Store(0)
	c.RemoteBreakerOpn.Store(0)
	c.LatencySumMs.Store(0)
}

// AverageLatencyMs returns the mean request latency in milliseconds, or 0 if
// no requests have been recorded.
func (c *Counters) AverageLatencyMs() float64 {
	reqs := c.Requests.Load()
	if reqs == 0 {
		return 0
	}
	return float64(c.LatencySumMs.Load()) / float64(reqs)
}
