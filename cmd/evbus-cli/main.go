// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package main is the entry point for the evbus-cli administrative tool.
//
// evbus-cli wires configuration, logging, durable storage, and the bus
// façade together for two purposes: running a long-lived server process
// (serve) and inspecting or repairing the dead letter queue (dlq).
//
// # Usage
//
//	evbus-cli serve
//	evbus-cli dlq list [offset] [limit]
//	evbus-cli dlq retry <event-id>
//	evbus-cli dlq purge <days>
//
// # Configuration
//
// See internal/config for the full set of EVBUS_* environment variables
// and the optional evbus.yaml file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/evbus/internal/config"
	"github.com/tomtom215/evbus/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "evbus-cli: load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx := context.Background()

	var cmdErr error
	switch os.Args[1] {
	case "serve":
		cmdErr = runServe(ctx, cfg)
	case "dlq":
		cmdErr = runDLQ(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		logging.Error().Err(cmdErr).Msg("command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: evbus-cli <serve|dlq> [args...]")
	fmt.Fprintln(os.Stderr, "  evbus-cli serve")
	fmt.Fprintln(os.Stderr, "  evbus-cli dlq list [offset] [limit]")
	fmt.Fprintln(os.Stderr, "  evbus-cli dlq retry <event-id>")
	fmt.Fprintln(os.Stderr, "  evbus-cli dlq purge <days>")
}
