// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is a fully-resolved retry configuration.
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns the bus-wide defaults: 3 retries, 1s base
// delay, 30s max delay, multiplier 2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// overlay returns a full policy built by applying a partial override on top
// of defaults, field by field.
func (o *RetryOverride) overlay(defaults RetryPolicy) RetryPolicy {
	if o == nil {
		return defaults
	}
	p := defaults
	if o.MaxRetries != nil {
		p.MaxRetries = *o.MaxRetries
	}
	if o.BaseDelay != nil {
		p.BaseDelay = *o.BaseDelay
	}
	if o.MaxDelay != nil {
		p.MaxDelay = *o.MaxDelay
	}
	if o.BackoffMultiplier != nil {
		p.BackoffMultiplier = *o.BackoffMultiplier
	}
	return p
}

// mergePolicies combines policies with the most-permissive operator per
// field: max retries, min base delay, max max-delay, max multiplier. No
// subscription's retry budget is cut short by another matching the same
// event.
func mergePolicies(policies []RetryPolicy) RetryPolicy {
	merged := policies[0]
	for _, p := range policies[1:] {
		if p.MaxRetries > merged.MaxRetries {
			merged.MaxRetries = p.MaxRetries
		}
		if p.BaseDelay < merged.BaseDelay {
			merged.BaseDelay = p.BaseDelay
		}
		if p.MaxDelay > merged.MaxDelay {
			merged.MaxDelay = p.MaxDelay
		}
		if p.BackoffMultiplier > merged.BackoffMultiplier {
			merged.BackoffMultiplier = p.BackoffMultiplier
		}
	}
	return merged
}

// delay returns the wait before the given 1-indexed attempt, with ±10%
// uniform jitter clamped at zero. attempt 1 never waits.
func delay(p RetryPolicy, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	raw := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-2))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	//nolint:gosec // weak random is fine for non-cryptographic backoff jitter
	jitter := raw * 0.1 * (rand.Float64()*2 - 1)
	d := raw + jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(math.Round(d))
}
