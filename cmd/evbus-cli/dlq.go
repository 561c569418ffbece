// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/evbus/internal/config"
	"github.com/tomtom215/evbus/internal/evbdlq"
	"github.com/tomtom215/evbus/internal/evbstore"
)

// runDLQ drives internal/evbdlq directly against the configured store path,
// without booting the dispatch pipeline.
func runDLQ(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: evbus-cli dlq <list|retry|purge> [args...]")
	}

	store, err := evbstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	reader := evbdlq.NewReader(store)

	switch args[0] {
	case "list":
		return dlqList(ctx, reader, cfg.DLQPageSize, args[1:])
	case "retry":
		if len(args) < 2 {
			return fmt.Errorf("usage: evbus-cli dlq retry <event-id>")
		}
		return reader.Retry(ctx, args[1])
	case "purge":
		if len(args) < 2 {
			return fmt.Errorf("usage: evbus-cli dlq purge <days>")
		}
		days, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid days %q: %w", args[1], err)
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		n, err := reader.Purge(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d events older than %d days\n", n, days)
		return nil
	default:
		return fmt.Errorf("unknown dlq subcommand %q", args[0])
	}
}

func dlqList(ctx context.Context, reader *evbdlq.Reader, defaultLimit int, args []string) error {
	offset, limit := 0, defaultLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[0], err)
		}
		offset = n
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", args[1], err)
		}
		limit = n
	}

	entries, err := reader.List(ctx, offset, limit)
	if err != nil {
		return err
	}
	count, err := reader.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d events in the dead letter queue (showing %d, offset %d)\n", count, len(entries), offset)
	for _, e := range entries {
		fmt.Printf("%s\t%s\tretries=%d\tdlq_at=%s\n", e.ID, e.Type, e.RetryCount, e.DLQAt)
	}
	return nil
}
