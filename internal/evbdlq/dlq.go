// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package evbdlq provides a thin, read-mostly admin view over the dead
// letter queue. It depends on evbstore directly and is never imported by
// the dispatch core, keeping the admin surface optional.
package evbdlq

import (
	"context"
	"time"

	"github.com/tomtom215/evbus/internal/evbstore"
)

// Entry is the admin-facing view of a dlq event.
type Entry struct {
	ID         string
	Type       string
	Payload    []byte
	Metadata   map[string]string
	CreatedAt  time.Time
	RetryCount int
	LastError  []string
	DLQAt      *time.Time
}

// Reader lists, retries, and purges dead-lettered events.
type Reader struct {
	store evbstore.Store
}

// NewReader returns a Reader backed by the given store.
func NewReader(store evbstore.Store) *Reader {
	return &Reader{store: store}
}

// List returns dlq events, newest first, paginated by offset and limit.
func (r *Reader) List(ctx context.Context, offset, limit int) ([]Entry, error) {
	events, err := r.store.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(events))
	for _, e := range events {
		out = append(out, Entry{
			ID:         e.ID,
			Type:       e.Type,
			Payload:    e.Payload,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
			RetryCount: e.RetryCount,
			LastError:  e.LastError,
			DLQAt:      e.DLQAt,
		})
	}
	return out, nil
}

// Count returns the total number of events currently in the dead letter queue.
func (r *Reader) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

// Retry requeues a dlq event back to pending with a reset retry count and
// cleared error history and dlq_at. It does not dispatch the event, and the
// bus re-dispatches only events left in processing (at Start), so a
// requeued event stays pending. It returns evbstore.ErrNotFound or
// evbstore.ErrNotInDLQ as appropriate.
func (r *Reader) Retry(ctx context.Context, id string) error {
	return r.store.ResetDLQEvent(ctx, id)
}

// Purge deletes dlq events older than the cutoff, returning the count removed.
func (r *Reader) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.store.PurgeDLQ(ctx, cutoff)
}
