// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

/*
Package metrics provides Prometheus instrumentation for the dispatch pipeline.

# Overview

The package exposes a fixed set of series describing dispatch activity:
retries, successful attempts, dead-letter routing, published events, handler
latency, and circuit breaker state. These are a side channel for operators;
they are never read back by the bus itself to decide behavior.

# Metrics

  - evbus_retries_total: failed handler attempts (counter)
    Labels: event_type, subscription_id
  - evbus_retry_success_total: attempts that returned nil (counter)
    Labels: event_type, subscription_id
  - evbus_dlq_total: events routed to the dead letter queue (counter)
    Labels: event_type, subscription_id
  - evbus_events_observed_total: events accepted by Publish (counter)
    Labels: event_type
  - evbus_handler_duration_seconds: handler execution time (histogram)
    Labels: event_type, subscription_id
  - evbus_circuit_state: current circuit breaker state (gauge)
    Labels: subscription_id
    Values: 0=closed, 1=half_open, 2=open

# Usage

	metrics.RecordEventObserved(event.Type)
	start := time.Now()
	err := handler(ctx, event)
	metrics.RecordHandlerDuration(event.Type, sub.ID, time.Since(start).Seconds())
	if err != nil {
	    metrics.RecordRetry(event.Type, sub.ID)
	} else {
	    metrics.RecordAttemptSuccess(event.Type, sub.ID)
	}

Register the default Prometheus handler in the serving binary:

	http.Handle("/metrics", promhttp.Handler())
*/
package metrics
