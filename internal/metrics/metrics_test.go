// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordRetry(t *testing.T) {
	RecordRetry("order.created", "sub-1")
	RecordRetry("order.created", "sub-1")
	RecordRetry("order.updated", "sub-2")
}

func TestRecordAttemptSuccess(t *testing.T) {
	RecordAttemptSuccess("order.created", "sub-1")
}

func TestRecordDLQ(t *testing.T) {
	RecordDLQ("order.created", "sub-1")
}

func TestRecordEventObserved(t *testing.T) {
	RecordEventObserved("order.created")
	RecordEventObserved("order.updated")
}

func TestRecordHandlerDuration(t *testing.T) {
	RecordHandlerDuration("order.created", "sub-1", 0.005)
	RecordHandlerDuration("order.created", "sub-1", 1.25)
}

func TestSetCircuitState(t *testing.T) {
	SetCircuitState("sub-1", CircuitStateClosed)
	SetCircuitState("sub-1", CircuitStateOpen)
	SetCircuitState("sub-1", CircuitStateHalfOpen)
}

func TestMetricsConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 50
	const perGoroutine = 20

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				RecordEventObserved("stress.event")
				RecordRetry("stress.event", "sub-stress")
				RecordAttemptSuccess("stress.event", "sub-stress")
				RecordHandlerDuration("stress.event", "sub-stress", 0.001)
				SetCircuitState("sub-stress", CircuitStateClosed)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		RetriesTotal,
		RetrySuccessTotal,
		DLQTotal,
		EventsObservedTotal,
		HandlerDuration,
		CircuitState,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric %T has no descriptors", c)
		}
	}
}
