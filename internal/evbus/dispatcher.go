// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/evbus/internal/evbstore"
	"github.com/tomtom215/evbus/internal/logging"
	"github.com/tomtom215/evbus/internal/metrics"
)

// dispatcher drives one persisted event through matching, admission,
// sequential handler invocation with timeouts, retry with backoff, and
// terminal routing to done or dlq.
type dispatcher struct {
	store         evbstore.Store
	circuits      *circuitRegistry
	metrics       *metricsRegistry
	logSink       LogSink
	defaultPolicy RetryPolicy
}

func newDispatcher(store evbstore.Store, circuits *circuitRegistry, mr *metricsRegistry, logSink LogSink, defaultPolicy RetryPolicy) *dispatcher {
	if logSink == nil {
		logSink = defaultLogSink
	}
	return &dispatcher{
		store:         store,
		circuits:      circuits,
		metrics:       mr,
		logSink:       logSink,
		defaultPolicy: defaultPolicy,
	}
}

// dispatch drives event to a terminal status. subs is the snapshot of
// subscriptions whose pattern matched event.Type, in registration order.
func (d *dispatcher) dispatch(ctx context.Context, event *Event, subs []*Subscription) {
	ctx = logging.ContextWithEventID(ctx, event.ID)
	admitted := d.admit(subs)
	if len(admitted) == 0 {
		event.Status = StatusDone
		_ = d.store.UpdateStatus(ctx, event.ID, string(StatusDone))
		return
	}

	event.Status = StatusProcessing
	_ = d.store.UpdateStatus(ctx, event.ID, string(StatusProcessing))

	policy := d.effectivePolicy(admitted)
	maxAttempts := policy.MaxRetries + 1

	errorHistory := append([]string(nil), event.LastError...)
	retryCount := event.RetryCount

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(delay(policy, attempt))
		}

		failedAt, failErr := d.runAttempt(ctx, event, admitted)
		if failedAt < 0 {
			if attempt > 1 {
				d.metrics.addRetries(event.Type, int64(attempt-1))
				d.metrics.recordSuccessAfterRetry(event.Type)
			}
			event.Status = StatusDone
			event.RetryCount = retryCount
			event.LastError = errorHistory
			_ = d.store.UpdateStatus(ctx, event.ID, string(StatusDone))
			return
		}

		errorHistory = append(errorHistory, failErr.Error())
		retryCount++
		_ = d.store.UpdateRetry(ctx, event.ID, retryCount, errorHistory)

		nextDelayMS := int64(0)
		if attempt < maxAttempts {
			nextDelayMS = delay(policy, attempt+1).Milliseconds()
		}
		d.logSink(RetryLogEntry{
			EventID:        event.ID,
			EventType:      event.Type,
			SubscriptionID: admitted[failedAt].ID,
			Attempt:        attempt,
			MaxAttempts:    maxAttempts,
			DelayMS:        nextDelayMS,
			Error:          failErr.Error(),
		})
	}

	event.Status = StatusDLQ
	event.RetryCount = retryCount
	event.LastError = errorHistory
	_ = d.store.MoveToDLQ(ctx, event.ID, errorHistory)
	d.metrics.recordDLQ(event.Type)
	d.metrics.addRetries(event.Type, int64(policy.MaxRetries))
	for _, sub := range admitted {
		metrics.RecordDLQ(event.Type, sub.ID)
	}
}

// admit partitions subs by circuit admission, preserving order. A
// subscription refused admission is simply excluded from this dispatch.
func (d *dispatcher) admit(subs []*Subscription) []*Subscription {
	now := time.Now()
	var admitted []*Subscription
	for _, sub := range subs {
		if d.circuits.get(sub.ID).admit(now) {
			admitted = append(admitted, sub)
		}
	}
	return admitted
}

// effectivePolicy merges the retry policies of every admitted subscription
// per the most-permissive rule.
func (d *dispatcher) effectivePolicy(admitted []*Subscription) RetryPolicy {
	policies := make([]RetryPolicy, len(admitted))
	for i, sub := range admitted {
		policies[i] = sub.RetryOverride.overlay(d.defaultPolicy)
	}
	return mergePolicies(policies)
}

// runAttempt invokes admitted handlers sequentially. On success it returns
// (-1, nil). On the first failure it records outcomes, releases any leaked
// half-open probes on subscriptions whose handler never ran this attempt,
// and returns the failing index and error.
func (d *dispatcher) runAttempt(ctx context.Context, event *Event, admitted []*Subscription) (int, error) {
	now := time.Now()
	for i, sub := range admitted {
		start := time.Now()
		subCtx := logging.ContextWithSubscriptionID(ctx, sub.ID)
		err := invokeWithTimeout(subCtx, sub, event)
		metrics.RecordHandlerDuration(event.Type, sub.ID, time.Since(start).Seconds())

		if err != nil {
			for _, completed := range admitted[:i] {
				d.circuits.get(completed.ID).record(now, true)
				metrics.RecordAttemptSuccess(event.Type, completed.ID)
			}
			d.circuits.get(sub.ID).record(now, false)
			metrics.RecordRetry(event.Type, sub.ID)
			for _, skipped := range admitted[i+1:] {
				d.circuits.get(skipped.ID).releaseLeakedProbe()
			}
			for _, sub := range admitted {
				metrics.SetCircuitState(sub.ID, d.circuits.get(sub.ID).snapshot())
			}
			return i, err
		}
	}

	for _, sub := range admitted {
		d.circuits.get(sub.ID).record(now, true)
		metrics.RecordAttemptSuccess(event.Type, sub.ID)
		metrics.SetCircuitState(sub.ID, d.circuits.get(sub.ID).snapshot())
	}
	return -1, nil
}

// invokeWithTimeout races a handler's completion against its configured
// timeout. The losing handler is not cancellable; it may continue running
// in the background after the timeout fires.
func invokeWithTimeout(ctx context.Context, sub *Subscription, event *Event) error {
	timeout := sub.effectiveTimeout()
	resultCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- &handlerPanicError{value: r}
			}
		}()
		resultCh <- sub.Handler(ctx, event)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-resultCh:
		return err
	case <-timer.C:
		return &HandlerTimeoutError{Duration: timeout.String()}
	}
}

type handlerPanicError struct {
	value any
}

func (e *handlerPanicError) Error() string {
	if err, ok := e.value.(error); ok {
		return "handler panicked: " + err.Error()
	}
	return fmt.Sprintf("handler panicked: %v", e.value)
}
