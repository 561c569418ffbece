// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Status is an event's position in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusDLQ        Status = "dlq"
)

// Event is the unit of work the bus moves through the dispatch pipeline.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Payload    json.RawMessage   `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Status     Status            `json:"status"`
	RetryCount int               `json:"retry_count"`
	LastError  []string          `json:"last_error,omitempty"`
	DLQAt      *time.Time        `json:"dlq_at,omitempty"`
}

// NewEvent builds a pending event ready for persistence. payload must already
// be valid JSON; callers marshal it before calling this (see Bus.Publish).
func NewEvent(eventType string, payload json.RawMessage, metadata map[string]string) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusPending,
	}
}
