// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import "github.com/tomtom215/evbus/internal/logging"

// RetryLogEntry is the structured record emitted for every failed attempt,
// including the one that finally routes an event to the dead letter queue.
type RetryLogEntry struct {
	EventID        string
	EventType      string
	SubscriptionID string
	Attempt        int
	MaxAttempts    int
	DelayMS        int64
	Error          string
}

// LogSink receives one RetryLogEntry per failed attempt.
type LogSink func(RetryLogEntry)

// defaultLogSink adapts RetryLogEntry onto the package-wide zerolog logger.
func defaultLogSink(e RetryLogEntry) {
	logging.NewDispatchLogger().RetryAttempt(logging.RetryLogEntry{
		EventID:        e.EventID,
		EventType:      e.EventType,
		SubscriptionID: e.SubscriptionID,
		Attempt:        e.Attempt,
		MaxAttempts:    e.MaxAttempts,
		DelayMS:        e.DelayMS,
		Error:          e.Error,
	})
}
