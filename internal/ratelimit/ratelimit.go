// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratelimit provides per-client fixed-window rate limiting over a
// pluggable counter store. The production store is Redis; an in-memory
// store serves single-instance deployments and tests.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Store counts requests per key within fixed windows. Incr increments the
// counter for key and returns the post-increment count; the first increment
// of a window starts it, and the counter expires once the window elapses.
// Implementations must be safe for concurrent use of the same key.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter admits at most limit requests per key per window.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  int64(limit),
		window: window,
	}
}

// Allow reports whether a request from the given client key may proceed.
// A store failure admits the request: an unreachable counter store must
// not take the contact form down with it.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	n, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		slog.Warn("rate limit store unavailable, allowing request",
			"key", key,
			"error", err,
		)
		return true
	}
	return n <= l.limit
}
