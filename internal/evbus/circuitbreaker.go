// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"sync"
	"time"
)

// circuitState names a subscription's position in the three-state machine.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitConfig tunes the rolling-window failure tracker shared by every
// subscription's circuit.
type CircuitConfig struct {
	Window           time.Duration
	MinSamples       int
	FailureThreshold float64
	Pause            time.Duration
}

// DefaultCircuitConfig returns the bus-wide defaults: 60s window, 4 minimum
// samples, >50% failure threshold, 30s pause before probing.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		Window:           60 * time.Second,
		MinSamples:       4,
		FailureThreshold: 0.5,
		Pause:            30 * time.Second,
	}
}

type outcome struct {
	at      time.Time
	success bool
}

// circuit is the per-subscription rolling-window state machine. A single
// circuit is never shared across subscriptions.
type circuit struct {
	mu     sync.Mutex
	cfg    CircuitConfig
	state  circuitState
	openedAt time.Time
	probeInFlight bool
	outcomes []outcome
}

func newCircuit(cfg CircuitConfig) *circuit {
	return &circuit{cfg: cfg, state: circuitClosed}
}

// admit decides whether a dispatch may invoke this subscription's handler
// right now. A true result in the open state means this call won the race
// to become the half-open probe.
func (c *circuit) admit(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if now.Sub(c.openedAt) >= c.cfg.Pause {
			c.state = circuitHalfOpen
			c.probeInFlight = true
			return true
		}
		return false
	case circuitHalfOpen:
		if c.probeInFlight {
			return false
		}
		c.probeInFlight = true
		return true
	}
	return false
}

// record applies a handler outcome to the circuit, transitioning state as
// needed. now is the caller-supplied clock reading for testability.
func (c *circuit) record(now time.Time, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == circuitHalfOpen {
		c.probeInFlight = false
		if success {
			c.state = circuitClosed
			c.outcomes = nil
		} else {
			c.state = circuitOpen
			c.openedAt = now
		}
		return
	}

	c.outcomes = append(c.outcomes, outcome{at: now, success: success})
	c.pruneLocked(now)

	if len(c.outcomes) < c.cfg.MinSamples {
		return
	}
	failures := 0
	for _, o := range c.outcomes {
		if !o.success {
			failures++
		}
	}
	if float64(failures)/float64(len(c.outcomes)) > c.cfg.FailureThreshold {
		c.state = circuitOpen
		c.openedAt = now
	}
}

// releaseLeakedProbe clears probe_in_flight for a subscription that was
// admitted as a half-open probe but whose handler never ran in this
// attempt, because an earlier handler in the sequence failed first.
// Without this the subscription would deadlock in half_open forever.
func (c *circuit) releaseLeakedProbe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitHalfOpen {
		c.probeInFlight = false
	}
}

func (c *circuit) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.cfg.Window)
	kept := c.outcomes[:0]
	for _, o := range c.outcomes {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	c.outcomes = kept
}

// snapshot returns the state for metrics reporting (0=closed,1=half_open,2=open).
func (c *circuit) snapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case circuitHalfOpen:
		return 1
	case circuitOpen:
		return 2
	default:
		return 0
	}
}

// circuitRegistry owns one circuit per subscription id, created lazily.
type circuitRegistry struct {
	mu       sync.Mutex
	cfg      CircuitConfig
	circuits map[string]*circuit
}

func newCircuitRegistry(cfg CircuitConfig) *circuitRegistry {
	return &circuitRegistry{cfg: cfg, circuits: make(map[string]*circuit)}
}

func (r *circuitRegistry) get(subscriptionID string) *circuit {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[subscriptionID]
	if !ok {
		c = newCircuit(r.cfg)
		r.circuits[subscriptionID] = c
	}
	return c
}

// remove drops a subscription's circuit state when it unsubscribes.
func (r *circuitRegistry) remove(subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.circuits, subscriptionID)
}
