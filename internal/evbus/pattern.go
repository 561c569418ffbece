// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package evbus

import "strings"

// matches reports whether event type t satisfies glob pattern p. A bare "*"
// matches anything. Otherwise t and p must have the same segment count and
// every pattern segment is either "*" or a literal match of its
// corresponding type segment.
func matches(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}

	patternSegs := strings.Split(pattern, ".")
	typeSegs := strings.Split(eventType, ".")
	if len(patternSegs) != len(typeSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if seg == "*" {
			continue
		}
		if seg != typeSegs[i] {
			return false
		}
	}
	return true
}
