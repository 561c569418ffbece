// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// eventIDKey is the context key for the event id being dispatched.
	eventIDKey contextKey = "event_id"

	// subscriptionIDKey is the context key for the subscription handling it.
	subscriptionIDKey contextKey = "subscription_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// ContextWithEventID returns a new context carrying the dispatched event's
// id, so any handler logging through Ctx picks it up automatically.
func ContextWithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext retrieves the event id from context.
// Returns empty string if not present.
func EventIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSubscriptionID returns a new context carrying the id of the
// subscription whose handler is about to run.
func ContextWithSubscriptionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subscriptionIDKey, id)
}

// SubscriptionIDFromContext retrieves the subscription id from context.
// Returns empty string if not present.
func SubscriptionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(subscriptionIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
// This is useful for passing pre-configured loggers through the dispatcher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with event_id and subscription_id automatically
// added when present on the context. Handlers invoked by the dispatcher
// receive a context already carrying both, so calling logging.Ctx(ctx)
// inside a handler ties its logs back to the dispatch that produced them.
//
//	logging.Ctx(ctx).Info().Msg("processing order")
//	// Output: {"level":"info","event_id":"...","subscription_id":"...","message":"processing order"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)
	contextLogger := logger.With().Logger()

	if eventID := EventIDFromContext(ctx); eventID != "" {
		contextLogger = contextLogger.With().Str("event_id", eventID).Logger()
	}
	if subID := SubscriptionIDFromContext(ctx); subID != "" {
		contextLogger = contextLogger.With().Str("subscription_id", subID).Logger()
	}

	return &contextLogger
}

// CtxWith returns a logger context builder with event_id/subscription_id
// pre-populated, for callers that need to add further fields beyond those.
//
//	logger := logging.CtxWith(ctx).Str("attempt", "3").Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if eventID := EventIDFromContext(ctx); eventID != "" {
		logCtx = logCtx.Str("event_id", eventID)
	}
	if subID := SubscriptionIDFromContext(ctx); subID != "" {
		logCtx = logCtx.Str("subscription_id", subID)
	}

	return logCtx
}

// CtxDebug starts a debug level message with context fields.
// Shorthand for Ctx(ctx).Debug().
func CtxDebug(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Debug()
}

// CtxInfo starts an info level message with context fields.
// Shorthand for Ctx(ctx).Info().
func CtxInfo(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Info()
}

// CtxWarn starts a warn level message with context fields.
// Shorthand for Ctx(ctx).Warn().
func CtxWarn(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Warn()
}

// CtxError starts an error level message with context fields.
// Shorthand for Ctx(ctx).Error().
func CtxError(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Error()
}

// CtxErr starts an error level message with context fields and the error.
// Shorthand for Ctx(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent creates a child logger with a component field.
// Use this to create component-specific loggers.
//
//	storeLogger := logging.WithComponent("evbstore")
//	storeLogger.Info().Msg("opened database")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
