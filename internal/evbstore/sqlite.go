// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// scanFn is the signature shared by *sql.Row.Scan and *sql.Rows.Scan, so
// rowToEvent can serve both a single-row lookup and a multi-row query.
type scanFn func(dest ...any) error

// SQLiteStore is the durable Store backed by a pure-Go sqlite driver. SQLite
// serializes writes; one connection avoids SQLITE_BUSY contention on the
// write path, so the pool is capped at one and an internal mutex guards
// operations that span more than one statement.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open creates or opens the sqlite database at path and runs migrations.
// An in-memory DSN (":memory:" or one containing "mode=memory") skips WAL,
// which sqlite does not support without a backing file.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("evbstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if !isInMemoryDSN(path) {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("evbstore: apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func isInMemoryDSN(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			status TEXT NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			dlq_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)`,
		`CREATE INDEX IF NOT EXISTS idx_events_dlq_created ON events(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			pattern TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("evbstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

const timeLayout = time.RFC3339Nano

func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func marshalErrorHistory(history []string) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	b, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalErrorHistory(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var history []string
	if err := json.Unmarshal([]byte(s), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// rowToEvent scans one events row via scan, which may come from QueryRow or
// from iterating Rows.
func rowToEvent(scan scanFn) (*Event, error) {
	var (
		e                        Event
		metadataJSON, errJSON    string
		createdAt, updatedAt     string
		dlqAt                    sql.NullString
	)
	if err := scan(&e.ID, &e.Type, &e.Payload, &metadataJSON, &createdAt, &updatedAt,
		&e.Status, &e.RetryCount, &errJSON, &dlqAt); err != nil {
		return nil, err
	}

	var err error
	if e.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
		return nil, fmt.Errorf("evbstore: decode metadata for %s: %w", e.ID, err)
	}
	if e.LastError, err = unmarshalErrorHistory(errJSON); err != nil {
		return nil, fmt.Errorf("evbstore: decode last_error for %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("evbstore: decode created_at for %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("evbstore: decode updated_at for %s: %w", e.ID, err)
	}
	if dlqAt.Valid {
		t, err := time.Parse(timeLayout, dlqAt.String)
		if err != nil {
			return nil, fmt.Errorf("evbstore: decode dlq_at for %s: %w", e.ID, err)
		}
		e.DLQAt = &t
	}
	return &e, nil
}

func (s *SQLiteStore) InsertEvent(ctx context.Context, e *Event) error {
	if s.isClosed() {
		return ErrClosed
	}
	metadataJSON, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("evbstore: encode metadata: %w", err)
	}
	errJSON, err := marshalErrorHistory(e.LastError)
	if err != nil {
		return fmt.Errorf("evbstore: encode last_error: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, payload, metadata, created_at, updated_at, status, retry_count, last_error, dlq_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		e.ID, e.Type, string(e.Payload), metadataJSON,
		e.CreatedAt.Format(timeLayout), e.UpdatedAt.Format(timeLayout), e.Status, e.RetryCount, errJSON)
	if err != nil {
		return fmt.Errorf("evbstore: insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, payload, metadata, created_at, updated_at, status, retry_count, last_error, dlq_at
		FROM events WHERE id = ?`, id)
	e, err := rowToEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("evbstore: get event %s: %w", id, err)
	}
	return e, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status string) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("evbstore: update status %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateRetry(ctx context.Context, id string, retryCount int, errorHistory []string) error {
	if s.isClosed() {
		return ErrClosed
	}
	errJSON, err := marshalErrorHistory(errorHistory)
	if err != nil {
		return fmt.Errorf("evbstore: encode last_error: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE events SET retry_count = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		retryCount, errJSON, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("evbstore: update retry %s: %w", id, err)
	}
	return nil
}

// MoveToDLQ atomically sets status=dlq, dlq_at=now, and persists the final
// error history in one statement.
func (s *SQLiteStore) MoveToDLQ(ctx context.Context, id string, errorHistory []string) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	errJSON, err := marshalErrorHistory(errorHistory)
	if err != nil {
		return fmt.Errorf("evbstore: encode last_error: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`UPDATE events SET status = 'dlq', dlq_at = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		now, errJSON, now, id)
	if err != nil {
		return fmt.Errorf("evbstore: move to dlq %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) EventsByStatus(ctx context.Context, status string) ([]*Event, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, payload, metadata, created_at, updated_at, status, retry_count, last_error, dlq_at
		FROM events WHERE status = ? ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("evbstore: events by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := rowToEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("evbstore: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertSubscription(ctx context.Context, rec *SubscriptionRecord) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, pattern, created_at) VALUES (?, ?, ?)`,
		rec.ID, rec.Pattern, rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("evbstore: insert subscription %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSubscription(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("evbstore: delete subscription %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context) ([]*SubscriptionRecord, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, pattern, created_at FROM subscriptions ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("evbstore: list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*SubscriptionRecord
	for rows.Next() {
		var rec SubscriptionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Pattern, &createdAt); err != nil {
			return nil, fmt.Errorf("evbstore: scan subscription: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("evbstore: decode subscription created_at: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// List returns dlq-status events newest-first, for the admin reader.
func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*Event, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, payload, metadata, created_at, updated_at, status, retry_count, last_error, dlq_at
		FROM events WHERE status = 'dlq' ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("evbstore: list dlq: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := rowToEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("evbstore: scan dlq event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE status = 'dlq'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("evbstore: count dlq: %w", err)
	}
	return n, nil
}

// ResetDLQEvent atomically requeues a dlq event back to pending, clearing
// dlq_at and the error history and resetting retry_count so the
// dispatcher's attempt loop starts fresh.
func (s *SQLiteStore) ResetDLQEvent(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET status = 'pending', retry_count = 0, last_error = '', dlq_at = NULL, updated_at = ?
		WHERE id = ? AND status = 'dlq'`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("evbstore: reset dlq event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("evbstore: reset dlq event %s: %w", id, err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("evbstore: reset dlq event %s: %w", id, err)
		}
		return ErrNotInDLQ
	}
	return nil
}

func (s *SQLiteStore) PurgeDLQ(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE status = 'dlq' AND created_at <= ?`,
		cutoff.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("evbstore: purge dlq: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evbstore: purge dlq: %w", err)
	}
	return n, nil
}

// Close is idempotent; repeated calls return nil.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
