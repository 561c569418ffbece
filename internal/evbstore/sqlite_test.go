// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbstore

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEvent(id, eventType string) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:        id,
		Type:      eventType,
		Payload:   []byte(`{"k":"v"}`),
		Metadata:  map[string]string{"source": "test"},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    "pending",
	}
}

func TestSQLiteStore_InsertAndGetEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := newTestEvent("evt-1", "order.created")
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	got, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Type != e.Type || got.Status != "pending" || got.Metadata["source"] != "test" {
		t.Errorf("GetEvent() = %+v, want matching fields from %+v", got, e)
	}
}

func TestSQLiteStore_GetEvent_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetEvent(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_UpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := newTestEvent("evt-2", "order.created")
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	if err := s.UpdateStatus(ctx, "evt-2", "processing"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, err := s.GetEvent(ctx, "evt-2")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Status != "processing" {
		t.Errorf("Status = %q, want processing", got.Status)
	}
}

func TestSQLiteStore_UpdateRetry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := newTestEvent("evt-3", "order.created")
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	history := []string{"timeout", "connection refused"}
	if err := s.UpdateRetry(ctx, "evt-3", 2, history); err != nil {
		t.Fatalf("UpdateRetry() error = %v", err)
	}
	got, err := s.GetEvent(ctx, "evt-3")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.RetryCount != 2 || len(got.LastError) != 2 || got.LastError[1] != "connection refused" {
		t.Errorf("GetEvent() = %+v, want retry_count=2 and 2 errors", got)
	}
}

func TestSQLiteStore_MoveToDLQ(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := newTestEvent("evt-4", "order.created")
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	history := []string{"boom", "boom", "boom"}
	if err := s.MoveToDLQ(ctx, "evt-4", history); err != nil {
		t.Fatalf("MoveToDLQ() error = %v", err)
	}

	got, err := s.GetEvent(ctx, "evt-4")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Status != "dlq" {
		t.Errorf("Status = %q, want dlq", got.Status)
	}
	if got.DLQAt == nil {
		t.Error("DLQAt is nil, want set")
	}
	if len(got.LastError) != 3 {
		t.Errorf("LastError = %v, want 3 entries", got.LastError)
	}
}

func TestSQLiteStore_EventsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.InsertEvent(ctx, newTestEvent(id, "order.created")); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}
	if err := s.UpdateStatus(ctx, "b", "processing"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	pending, err := s.EventsByStatus(ctx, "pending")
	if err != nil {
		t.Fatalf("EventsByStatus() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("EventsByStatus(pending) returned %d events, want 2", len(pending))
	}

	processing, err := s.EventsByStatus(ctx, "processing")
	if err != nil {
		t.Fatalf("EventsByStatus() error = %v", err)
	}
	if len(processing) != 1 || processing[0].ID != "b" {
		t.Errorf("EventsByStatus(processing) = %+v, want [b]", processing)
	}
}

func TestSQLiteStore_Subscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &SubscriptionRecord{ID: "sub-1", Pattern: "order.*", CreatedAt: time.Now().UTC()}
	if err := s.InsertSubscription(ctx, rec); err != nil {
		t.Fatalf("InsertSubscription() error = %v", err)
	}

	list, err := s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("ListSubscriptions() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "sub-1" {
		t.Errorf("ListSubscriptions() = %+v, want [sub-1]", list)
	}

	if err := s.DeleteSubscription(ctx, "sub-1"); err != nil {
		t.Fatalf("DeleteSubscription() error = %v", err)
	}
	list, err = s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("ListSubscriptions() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListSubscriptions() after delete = %+v, want empty", list)
	}
}

func TestSQLiteStore_List_Count_ResetDLQEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"d1", "d2"} {
		e := newTestEvent(id, "order.created")
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
		if err := s.MoveToDLQ(ctx, id, []string{"failed"}); err != nil {
			t.Fatalf("MoveToDLQ() error = %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	list, err := s.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() returned %d events, want 2", len(list))
	}

	if err := s.ResetDLQEvent(ctx, "d1"); err != nil {
		t.Fatalf("ResetDLQEvent() error = %v", err)
	}
	got, err := s.GetEvent(ctx, "d1")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Status != "pending" || got.RetryCount != 0 || got.DLQAt != nil {
		t.Errorf("GetEvent() after reset = %+v, want pending/0/nil", got)
	}

	if err := s.ResetDLQEvent(ctx, "d1"); err != ErrNotInDLQ {
		t.Errorf("ResetDLQEvent() on non-dlq event error = %v, want ErrNotInDLQ", err)
	}
}

func TestSQLiteStore_PurgeDLQ(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := newTestEvent("old", "order.created")
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := s.MoveToDLQ(ctx, "old", []string{"failed"}); err != nil {
		t.Fatalf("MoveToDLQ() error = %v", err)
	}

	n, err := s.PurgeDLQ(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeDLQ() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeDLQ() purged %d, want 1", n)
	}
	if _, err := s.GetEvent(ctx, "old"); err != ErrNotFound {
		t.Errorf("GetEvent() after purge error = %v, want ErrNotFound", err)
	}
}

// TestSQLiteStore_PurgeDLQ_KeysOffCreatedAt decouples created_at from dlq_at:
// MoveToDLQ always stamps dlq_at with the current time, so an event that was
// created long ago but only just entered the dead letter queue must still be
// purged by a cutoff measured against created_at. A cutoff test against
// dlq_at instead would keep this row forever.
func TestSQLiteStore_PurgeDLQ_KeysOffCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := newTestEvent("old-created", "order.created")
	old.CreatedAt = now.Add(-72 * time.Hour)
	if err := s.InsertEvent(ctx, old); err != nil {
		t.Fatalf("InsertEvent(old) error = %v", err)
	}
	if err := s.MoveToDLQ(ctx, "old-created", []string{"failed"}); err != nil {
		t.Fatalf("MoveToDLQ(old-created) error = %v", err)
	}

	recent := newTestEvent("recent-created", "order.created")
	recent.CreatedAt = now
	if err := s.InsertEvent(ctx, recent); err != nil {
		t.Fatalf("InsertEvent(recent) error = %v", err)
	}
	if err := s.MoveToDLQ(ctx, "recent-created", []string{"failed"}); err != nil {
		t.Fatalf("MoveToDLQ(recent-created) error = %v", err)
	}

	// Cutoff sits between the two created_at values but well before both
	// dlq_at stamps (both are ~now). A dlq_at-keyed purge would delete
	// neither row; a created_at-keyed purge deletes only the old one.
	cutoff := now.Add(-24 * time.Hour)
	n, err := s.PurgeDLQ(ctx, cutoff)
	if err != nil {
		t.Fatalf("PurgeDLQ() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("PurgeDLQ() purged %d, want 1", n)
	}
	if _, err := s.GetEvent(ctx, "old-created"); err != ErrNotFound {
		t.Errorf("GetEvent(old-created) after purge error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEvent(ctx, "recent-created"); err != nil {
		t.Errorf("GetEvent(recent-created) after purge error = %v, want nil", err)
	}
}

func TestSQLiteStore_Close_Idempotent(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() second call error = %v, want nil", err)
	}
	if err := s.InsertEvent(context.Background(), newTestEvent("x", "t")); err != ErrClosed {
		t.Errorf("InsertEvent() after close error = %v, want ErrClosed", err)
	}
}
