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
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process counter store. Used when no
// Redis URL is configured; limits then apply per instance, not globally.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int64
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Incr increments the counter for key, resetting the window if it elapsed.
func (s *MemoryStore) Incr(_ context.Context, key string, windowLen time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowLen {
		w = &window{start: now}
		s.windows[key] = w
	}
	w.count++

	// Drop stale windows opportunistically so the map does not grow without
	// bound under churny client addresses.
	if len(s.windows) > 4096 {
		for k, old := range s.windows {
			if now.Sub(old.start) >= windowLen {
				delete(s.windows, k)
			}
		}
	}

	return w.count, nil
}
