// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the dispatch pipeline. These series are a
// side channel for operators; the authoritative counters used to satisfy
// bus invariants live in the bus's own in-memory metrics map.

var (
	// RetriesTotal counts failed handler attempts, per event type and the
	// subscription whose handler failed.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbus_retries_total",
			Help: "Total number of retried handler attempts",
		},
		[]string{"event_type", "subscription_id"},
	)

	// RetrySuccessTotal counts attempts (including the first) that returned
	// a nil error, per event type and subscription.
	RetrySuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbus_retry_success_total",
			Help: "Total number of handler attempts that succeeded",
		},
		[]string{"event_type", "subscription_id"},
	)

	// DLQTotal counts events routed to the dead letter queue, per event
	// type and subscription.
	DLQTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbus_dlq_total",
			Help: "Total number of events routed to the dead letter queue",
		},
		[]string{"event_type", "subscription_id"},
	)

	// EventsObservedTotal counts events accepted by Publish, per event type.
	EventsObservedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbus_events_observed_total",
			Help: "Total number of events published to the bus",
		},
		[]string{"event_type"},
	)

	// HandlerDuration observes wall-clock handler execution time, per
	// event type and subscription.
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evbus_handler_duration_seconds",
			Help:    "Duration of individual handler invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_type", "subscription_id"},
	)

	// CircuitState reports the current circuit breaker state per
	// subscription: 0=closed, 1=half_open, 2=open.
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evbus_circuit_state",
			Help: "Circuit breaker state per subscription (0=closed, 1=half_open, 2=open)",
		},
		[]string{"subscription_id"},
	)
)

// Circuit breaker state values recorded on the CircuitState gauge.
const (
	CircuitStateClosed   = 0
	CircuitStateHalfOpen = 1
	CircuitStateOpen     = 2
)

// RecordRetry increments the retry counter for one failed handler attempt,
// including the final attempt before an event is dead-lettered.
func RecordRetry(eventType, subscriptionID string) {
	RetriesTotal.WithLabelValues(eventType, subscriptionID).Inc()
}

// RecordAttemptSuccess increments the success counter for an attempt that
// returned a nil error.
func RecordAttemptSuccess(eventType, subscriptionID string) {
	RetrySuccessTotal.WithLabelValues(eventType, subscriptionID).Inc()
}

// RecordDLQ increments the DLQ counter for an event that exhausted its
// retry budget.
func RecordDLQ(eventType, subscriptionID string) {
	DLQTotal.WithLabelValues(eventType, subscriptionID).Inc()
}

// RecordEventObserved increments the publish counter for an event type.
func RecordEventObserved(eventType string) {
	EventsObservedTotal.WithLabelValues(eventType).Inc()
}

// RecordHandlerDuration observes a handler invocation's wall-clock duration
// in seconds.
func RecordHandlerDuration(eventType, subscriptionID string, seconds float64) {
	HandlerDuration.WithLabelValues(eventType, subscriptionID).Observe(seconds)
}

// SetCircuitState updates the gauge reflecting a subscription's circuit
// breaker state.
func SetCircuitState(subscriptionID string, state int) {
	CircuitState.WithLabelValues(subscriptionID).Set(float64(state))
}
