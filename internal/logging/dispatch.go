// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package logging

// RetryLogEntry mirrors the structured retry-log schema: one entry is
// emitted per failed attempt (including the final one that routes an
// event to the DLQ).
type RetryLogEntry struct {
	EventID        string
	EventType      string
	SubscriptionID string
	Attempt        int
	MaxAttempts    int
	DelayMS        int64
	Error          string
}

// DispatchLogger emits dispatch-pipeline retry log entries as structured
// zerolog warn-level events, matching the field set a consumer of this
// repository's retry log sink would expect.
type DispatchLogger struct{}

// NewDispatchLogger returns a DispatchLogger writing through the global
// logger, component-tagged "evbus".
func NewDispatchLogger() *DispatchLogger {
	return &DispatchLogger{}
}

// RetryAttempt logs one failed-attempt entry.
func (d *DispatchLogger) RetryAttempt(entry RetryLogEntry) {
	WithComponent("evbus").Warn().
		Str("event_id", entry.EventID).
		Str("event_type", entry.EventType).
		Str("subscription_id", entry.SubscriptionID).
		Int("attempt", entry.Attempt).
		Int("max_attempts", entry.MaxAttempts).
		Int64("delay_ms", entry.DelayMS).
		Str("error", entry.Error).
		Msg("handler attempt failed")
}
