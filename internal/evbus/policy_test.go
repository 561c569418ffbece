// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import (
	"math"
	"testing"
	"time"
)

func ptrInt(v int) *int                      { return &v }
func ptrDuration(v time.Duration) *time.Duration { return &v }
func ptrFloat(v float64) *float64            { return &v }

func TestOverlay_NilOverride(t *testing.T) {
	defaults := DefaultRetryPolicy()
	var o *RetryOverride
	if got := o.overlay(defaults); got != defaults {
		t.Errorf("overlay(nil) = %+v, want defaults %+v", got, defaults)
	}
}

func TestOverlay_PartialOverride(t *testing.T) {
	defaults := DefaultRetryPolicy()
	o := &RetryOverride{MaxRetries: ptrInt(5)}
	got := o.overlay(defaults)

	want := defaults
	want.MaxRetries = 5
	if got != want {
		t.Errorf("overlay() = %+v, want %+v", got, want)
	}
}

func TestMergePolicies_MostPermissive(t *testing.T) {
	a := RetryPolicy{MaxRetries: 1, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
	b := RetryPolicy{MaxRetries: 4, BaseDelay: 10 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffMultiplier: 3}

	merged := mergePolicies([]RetryPolicy{a, b})

	want := RetryPolicy{MaxRetries: 4, BaseDelay: 10 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffMultiplier: 3}
	if merged != want {
		t.Errorf("mergePolicies() = %+v, want %+v", merged, want)
	}
}

func TestMergePolicies_NeverMoreRestrictive(t *testing.T) {
	policies := []RetryPolicy{
		{MaxRetries: 2, BaseDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond, BackoffMultiplier: 1.5},
		{MaxRetries: 1, BaseDelay: 5 * time.Millisecond, MaxDelay: 900 * time.Millisecond, BackoffMultiplier: 2.5},
		{MaxRetries: 3, BaseDelay: 40 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffMultiplier: 1},
	}
	merged := mergePolicies(policies)

	for _, p := range policies {
		if merged.MaxRetries < p.MaxRetries {
			t.Errorf("merged.MaxRetries = %d, more restrictive than %d", merged.MaxRetries, p.MaxRetries)
		}
		if merged.BaseDelay > p.BaseDelay {
			t.Errorf("merged.BaseDelay = %v, more restrictive than %v", merged.BaseDelay, p.BaseDelay)
		}
		if merged.MaxDelay < p.MaxDelay {
			t.Errorf("merged.MaxDelay = %v, more restrictive than %v", merged.MaxDelay, p.MaxDelay)
		}
		if merged.BackoffMultiplier < p.BackoffMultiplier {
			t.Errorf("merged.BackoffMultiplier = %v, more restrictive than %v", merged.BackoffMultiplier, p.BackoffMultiplier)
		}
	}
}

func TestDelay_FirstAttemptIsZero(t *testing.T) {
	p := DefaultRetryPolicy()
	if d := delay(p, 1); d != 0 {
		t.Errorf("delay(1) = %v, want 0", d)
	}
}

func TestDelay_WithinJitterBounds(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}

	for attempt := 2; attempt <= 5; attempt++ {
		raw := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-2))
		if raw > float64(p.MaxDelay) {
			raw = float64(p.MaxDelay)
		}
		lo := raw * 0.9
		hi := raw * 1.1

		for i := 0; i < 50; i++ {
			got := float64(delay(p, attempt))
			if got < lo-1 || got > hi+1 {
				t.Errorf("delay(%d) = %v, want within [%v, %v]", attempt, time.Duration(got), time.Duration(lo), time.Duration(hi))
			}
		}
	}
}

func TestDelay_CapsAtMaxDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: 200 * time.Millisecond, BackoffMultiplier: 10}
	got := delay(p, 6)
	capped := float64(p.MaxDelay)
	if float64(got) > capped*1.1+1 {
		t.Errorf("delay(6) = %v, want capped near max_delay %v", got, p.MaxDelay)
	}
}
