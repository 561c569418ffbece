// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"errors"
	"fmt"
)

// ErrShuttingDown is returned by Publish and Subscribe once the bus has
// started draining.
var ErrShuttingDown = errors.New("evbus: bus is shutting down")

// ErrInvalidPayload is returned by Publish when the payload cannot be
// marshaled to JSON. The event is never persisted.
var ErrInvalidPayload = errors.New("evbus: payload is not JSON-serializable")

// ErrNotFound names the DLQ-retry failure for an unknown event id. Nothing
// in this package returns it; the DLQ reader (internal/evbdlq) reports that
// case as evbstore.ErrNotFound.
var ErrNotFound = errors.New("evbus: event not found")

// ErrNotInDLQ names the DLQ-retry failure for an event that exists but is
// not in the dlq status. Nothing in this package returns it; the DLQ reader
// reports that case as evbstore.ErrNotInDLQ.
var ErrNotInDLQ = errors.New("evbus: event is not in the dead letter queue")

// HandlerTimeoutError is the synthesized failure recorded when a handler
// does not complete within its configured timeout.
type HandlerTimeoutError struct {
	Duration string
}

func (e *HandlerTimeoutError) Error() string {
	return fmt.Sprintf("handler timed out after %s", e.Duration)
}
