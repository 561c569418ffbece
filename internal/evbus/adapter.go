// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"github.com/tomtom215/evbus/internal/evbstore"
)

// toStoreEvent projects an in-memory Event onto its persisted form.
func toStoreEvent(e *Event) *evbstore.Event {
	return &evbstore.Event{
		ID:         e.ID,
		Type:       e.Type,
		Payload:    e.Payload,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		Status:     string(e.Status),
		RetryCount: e.RetryCount,
		LastError:  e.LastError,
		DLQAt:      e.DLQAt,
	}
}

// fromStoreEvent reconstructs an in-memory Event from its persisted form.
func fromStoreEvent(e *evbstore.Event) *Event {
	return &Event{
		ID:         e.ID,
		Type:       e.Type,
		Payload:    e.Payload,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		Status:     Status(e.Status),
		RetryCount: e.RetryCount,
		LastError:  e.LastError,
		DLQAt:      e.DLQAt,
	}
}
