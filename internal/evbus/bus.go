// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package evbus implements a durable, in-process event bus: publishers
// submit typed events, subscribers register handlers keyed by glob
// patterns, and the dispatch pipeline guarantees every accepted event
// either completes successfully or is preserved in a dead letter queue
// with full diagnostic context, surviving process crashes via a durable
// store.
package evbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/evbus/internal/evbstore"
	"github.com/tomtom215/evbus/internal/metrics"
)

// DefaultShutdownTimeout bounds the drain wait in Shutdown when Config
// does not specify one.
const DefaultShutdownTimeout = 30 * time.Second

// Config tunes the bus's defaults. Zero values fall back to package
// defaults.
type Config struct {
	RetryPolicy     RetryPolicy
	CircuitConfig   CircuitConfig
	ShutdownTimeout time.Duration
	LogSink         LogSink
}

// SubscribeOptions carries the optional, per-subscription knobs.
type SubscribeOptions struct {
	Timeout       time.Duration
	RetryOverride *RetryOverride
}

// Bus is the façade: it persists and dispatches events, and owns the
// in-memory subscription registry, circuit state, and metrics.
type Bus struct {
	store      evbstore.Store
	dispatcher *dispatcher
	metrics    *metricsRegistry

	subsMu   sync.RWMutex
	subs     map[string]*Subscription
	subOrder []string

	shutdownTimeout time.Duration

	mu       sync.Mutex
	draining bool
	inFlight sync.WaitGroup
}

// New constructs a Bus over store. Call Start before publishing to recover
// events left in processing by a prior crash.
func New(store evbstore.Store, cfg Config) *Bus {
	policy := cfg.RetryPolicy
	if policy == (RetryPolicy{}) {
		policy = DefaultRetryPolicy()
	}
	circuitCfg := cfg.CircuitConfig
	if circuitCfg == (CircuitConfig{}) {
		circuitCfg = DefaultCircuitConfig()
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	mr := newMetricsRegistry()
	circuits := newCircuitRegistry(circuitCfg)

	return &Bus{
		store:           store,
		dispatcher:      newDispatcher(store, circuits, mr, cfg.LogSink, policy),
		metrics:         mr,
		subs:            make(map[string]*Subscription),
		shutdownTimeout: shutdownTimeout,
	}
}

// Publish persists a pending event and drives it through the dispatch
// pipeline, returning only once the event has reached a terminal status
// (done or dlq). Callers that want a non-blocking publish should run it in
// their own goroutine.
func (b *Bus) Publish(ctx context.Context, eventType string, payload any, metadata map[string]string) (string, error) {
	if b.isDraining() {
		return "", ErrShuttingDown
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", ErrInvalidPayload
	}

	event := NewEvent(eventType, raw, metadata)
	if err := b.store.InsertEvent(ctx, toStoreEvent(event)); err != nil {
		return "", fmt.Errorf("evbus: persist event %s: %w", event.ID, err)
	}
	b.metrics.observeEvent(eventType)
	metrics.RecordEventObserved(eventType)

	b.inFlight.Add(1)
	defer b.inFlight.Done()

	subs := b.matchingSubs(eventType)
	b.dispatcher.dispatch(ctx, event, subs)
	return event.ID, nil
}

// Subscribe binds handler to pattern (an empty pattern means "*"),
// returning the new subscription's id. The durable row is a traceability
// record only; only the in-memory handler map drives dispatch.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler Handler, opts SubscribeOptions) (string, error) {
	if b.isDraining() {
		return "", ErrShuttingDown
	}
	if pattern == "" {
		pattern = "*"
	}

	sub := &Subscription{
		ID:            uuid.New().String(),
		Pattern:       pattern,
		Handler:       handler,
		Timeout:       opts.Timeout,
		RetryOverride: opts.RetryOverride,
		CreatedAt:     time.Now().UTC(),
	}

	if err := b.store.InsertSubscription(ctx, &evbstore.SubscriptionRecord{
		ID:        sub.ID,
		Pattern:   sub.Pattern,
		CreatedAt: sub.CreatedAt,
	}); err != nil {
		return "", fmt.Errorf("evbus: persist subscription %s: %w", sub.ID, err)
	}

	b.subsMu.Lock()
	b.subs[sub.ID] = sub
	b.subOrder = append(b.subOrder, sub.ID)
	b.subsMu.Unlock()

	return sub.ID, nil
}

// Unsubscribe removes a subscription from the in-memory registry and the
// durable record. It is idempotent: removing an unknown id is a no-op.
func (b *Bus) Unsubscribe(ctx context.Context, id string) error {
	b.subsMu.Lock()
	if _, ok := b.subs[id]; ok {
		delete(b.subs, id)
		for i, sid := range b.subOrder {
			if sid == id {
				b.subOrder = append(b.subOrder[:i], b.subOrder[i+1:]...)
				break
			}
		}
	}
	b.subsMu.Unlock()

	b.dispatcher.circuits.remove(id)

	if err := b.store.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("evbus: delete subscription %s: %w", id, err)
	}
	return nil
}

// matchingSubs returns the subscriptions whose pattern matches eventType,
// in registration order. The snapshot is taken under a read lock;
// late-arriving subscriptions need not observe in-flight dispatches.
func (b *Bus) matchingSubs(eventType string) []*Subscription {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	var out []*Subscription
	for _, id := range b.subOrder {
		sub := b.subs[id]
		if matches(sub.Pattern, eventType) {
			out = append(out, sub)
		}
	}
	return out
}

// Start performs crash recovery: any event left in processing status is a
// crash survivor. Its retry_count is incremented (the crashed attempt
// counts as a failure), status is reset to pending, and it is re-entered
// into the dispatch pipeline concurrently with any other recovered events.
func (b *Bus) Start(ctx context.Context) error {
	stored, err := b.store.EventsByStatus(ctx, string(StatusProcessing))
	if err != nil {
		return fmt.Errorf("evbus: list processing events: %w", err)
	}

	for _, se := range stored {
		event := fromStoreEvent(se)
		event.RetryCount++
		event.LastError = append(event.LastError, "crash recovery: process restarted mid-dispatch")

		if err := b.store.UpdateRetry(ctx, event.ID, event.RetryCount, event.LastError); err != nil {
			return fmt.Errorf("evbus: recover event %s: %w", event.ID, err)
		}
		if err := b.store.UpdateStatus(ctx, event.ID, string(StatusPending)); err != nil {
			return fmt.Errorf("evbus: recover event %s: %w", event.ID, err)
		}
		event.Status = StatusPending

		subs := b.matchingSubs(event.Type)
		b.inFlight.Add(1)
		go func(ev *Event, s []*Subscription) {
			defer b.inFlight.Done()
			b.dispatcher.dispatch(context.Background(), ev, s)
		}(event, subs)
	}
	return nil
}

// Shutdown is idempotent. It rejects new Publish/Subscribe calls, then
// waits for in-flight dispatches to reach a terminal state, bounded by the
// configured shutdown timeout. The store is closed regardless of whether
// the drain completed; any dispatch still running in the background after
// that point will see its persistence calls fail silently.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return nil
	}
	b.draining = true
	b.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		b.inFlight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(b.shutdownTimeout):
	case <-ctx.Done():
	}

	return b.store.Close()
}

func (b *Bus) isDraining() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draining
}

// MetricsSnapshot returns a copy of the in-process, per-event-type totals
// the bus's invariants are checked against.
func (b *Bus) MetricsSnapshot() map[string]TypeMetrics {
	return b.metrics.Snapshot()
}
