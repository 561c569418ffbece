// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package logging provides centralized zerolog-based structured logging for evbus.
//
// This package implements a unified logging layer using zerolog, providing
// zero-allocation structured JSON logging for production and human-readable
// console output for development.
//
// # Overview
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output format for production (machine-parseable)
//   - Console output format for development (human-readable)
//   - Global logger configuration via Init
//   - Context-aware logging with correlation ID propagation
//   - Component loggers tagged for the dispatch pipeline's retry log sink
//
// # Quick Start
//
//	import "github.com/tomtom215/evbus/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Caller: false,
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("component", "evbus").Msg("dispatcher started")
//	logging.Error().Err(err).Msg("handler attempt failed")
//
//	// Context-aware logging
//	logging.Ctx(ctx).Info().Str("event_id", id).Msg("processing")
//
// # Configuration
//
// The logger is configured by passing a Config to Init. The package reads
// one environment variable itself: FUZZ_MODE=1 sets the logger built at
// package init to fatal level. evbus-cli takes the level and format from
// EVBUS_LOG_LEVEL and EVBUS_LOG_FORMAT (see internal/config) and passes
// them to Init.
//
// # Log Levels
//
// Supported log levels (from most to least verbose):
//
//	trace  - Very detailed diagnostic information
//	debug  - Detailed diagnostic information
//	info   - General operational information (default)
//	warn   - Warning conditions that should be addressed
//	error  - Error conditions requiring attention
//	fatal  - Fatal errors that terminate the program
//	panic  - Panic conditions that crash the program
//
// # Structured Logging Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	dispatchLogger := logging.WithComponent("evbus")
//	dispatchLogger.Warn().Str("event_id", id).Msg("handler attempt failed")
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
package logging
