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

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces rate limit counters in Redis.
const keyPrefix = "contact:rate:"

// rediser is the slice of the client API the store uses. *redis.Client
// satisfies it; tests substitute a fake.
type rediser interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore counts requests in Redis. INCR is atomic per key, so
// concurrent requests from the same client never lose increments.
type RedisStore struct {
	rdb rediser
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Incr increments the window counter for key. SET NX plants the zero counter
// with its expiry before the increment, so a counter key never exists without
// a deadline; a crash between the two commands leaves at most a zero that
// expires on schedule. On an established key SET NX is a no-op and the TTL
// keeps running, which fixes the window at the first request.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := keyPrefix + key

	if err := s.rdb.SetNX(ctx, full, 0, window).Err(); err != nil {
		return 0, fmt.Errorf("rate limit SETNX: %w", err)
	}

	n, err := s.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit INCR: %w", err)
	}

	return n, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}
