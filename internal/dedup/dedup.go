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

// Package dedup suppresses duplicate contact submissions. Clients that
// retry a send (flaky networks, double clicks) can attach an idempotency
// key; the first use of a key wins and later uses are answered without
// relaying a second email.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a used idempotency key is remembered. Retries
	// arrive within seconds; a day is comfortably past any client retry loop.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces idempotency keys in Redis.
	keyPrefix = "contact:idem:"
)

// Filter tracks which idempotency keys have already produced a send.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a duplicate-submission filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// FirstUse returns true if the idempotency key has not been seen before,
// claiming it atomically (SETNX) so concurrent retries cannot both win.
func (f *Filter) FirstUse(ctx context.Context, key string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, keyPrefix+key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency SETNX: %w", err)
	}
	return set, nil
}
