// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"context"
	"time"
)

// DefaultHandlerTimeout is used for a subscription that does not specify one.
const DefaultHandlerTimeout = 30 * time.Second

// Handler processes one event. A non-nil error marks the attempt failed;
// the error's message is appended to the event's error history.
type Handler func(ctx context.Context, event *Event) error

// RetryOverride is a partial retry policy layered onto the defaults. Nil
// fields mean "use the default for this field."
type RetryOverride struct {
	MaxRetries        *int
	BaseDelay         *time.Duration
	MaxDelay          *time.Duration
	BackoffMultiplier *float64
}

// Subscription binds a handler to an event-type glob pattern.
type Subscription struct {
	ID            string
	Pattern       string
	Handler       Handler
	Timeout       time.Duration
	RetryOverride *RetryOverride
	CreatedAt     time.Time
}

// effectiveTimeout returns the subscription's configured timeout, or the
// default if unset.
func (s *Subscription) effectiveTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultHandlerTimeout
	}
	return s.Timeout
}
