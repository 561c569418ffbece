// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package evbstore defines the persistence contract the dispatch core
// depends on, and a concrete modernc.org/sqlite implementation of it.
package evbstore

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by any operation issued after Close. The dispatcher
// treats it as a silent no-op for abandoned post-shutdown writes, never an
// escaping error.
var ErrClosed = errors.New("evbstore: store is closed")

// ErrNotFound is returned when no event has the requested id.
var ErrNotFound = errors.New("evbstore: event not found")

// ErrNotInDLQ is returned by ResetDLQEvent when the event exists but its
// status is not dlq.
var ErrNotInDLQ = errors.New("evbstore: event is not in the dead letter queue")

// Event mirrors evbus.Event's persisted columns. It is defined here,
// independent of the evbus package, so evbstore has no dependency on the
// dispatch core — only the reverse.
type Event struct {
	ID         string
	Type       string
	Payload    []byte
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Status     string
	RetryCount int
	LastError  []string
	DLQAt      *time.Time
}

// SubscriptionRecord is the traceability-only durable row for a
// subscription; it carries no handler.
type SubscriptionRecord struct {
	ID        string
	Pattern   string
	CreatedAt time.Time
}

// Store is the narrow persistence contract the dispatch core consumes.
type Store interface {
	InsertEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	UpdateRetry(ctx context.Context, id string, retryCount int, errorHistory []string) error
	MoveToDLQ(ctx context.Context, id string, errorHistory []string) error
	EventsByStatus(ctx context.Context, status string) ([]*Event, error)

	InsertSubscription(ctx context.Context, s *SubscriptionRecord) error
	DeleteSubscription(ctx context.Context, id string) error
	ListSubscriptions(ctx context.Context) ([]*SubscriptionRecord, error)

	// List returns dlq-status events, newest created_at first.
	List(ctx context.Context, offset, limit int) ([]*Event, error)
	Count(ctx context.Context) (int64, error)
	ResetDLQEvent(ctx context.Context, id string) error
	PurgeDLQ(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
