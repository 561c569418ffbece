// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/evbus/internal/config"
	"github.com/tomtom215/evbus/internal/evbus"
	"github.com/tomtom215/evbus/internal/evbstore"
	"github.com/tomtom215/evbus/internal/logging"
)

// runServe boots the bus against the configured store, installs a demo
// subscription so the process has something to dispatch, and blocks until
// SIGINT/SIGTERM, at which point it drains in-flight dispatches within the
// configured shutdown timeout.
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := evbstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	bus := evbus.New(store, evbus.Config{
		RetryPolicy: evbus.RetryPolicy{
			MaxRetries:        cfg.Retry.MaxRetries,
			BaseDelay:         cfg.Retry.BaseDelay,
			MaxDelay:          cfg.Retry.MaxDelay,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		},
		CircuitConfig: evbus.CircuitConfig{
			Window:           cfg.Circuit.Window,
			MinSamples:       cfg.Circuit.MinSamples,
			FailureThreshold: cfg.Circuit.FailureThreshold,
			Pause:            cfg.Circuit.Pause,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	if err := bus.Start(ctx); err != nil {
		return err
	}
	logging.Info().Msg("bus started, crash recovery complete")

	if _, err := bus.Subscribe(ctx, "*", demoHandler, evbus.SubscribeOptions{
		Timeout: cfg.HandlerTimeout,
	}); err != nil {
		return err
	}
	logging.Info().Msg("demo subscription registered on pattern *")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	return bus.Shutdown(ctx)
}

// demoHandler logs every dispatched event; it always succeeds. Replace with
// real subscriptions in a production deployment.
func demoHandler(_ context.Context, event *evbus.Event) error {
	logging.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Msg("dispatched event")
	return nil
}
