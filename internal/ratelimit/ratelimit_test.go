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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestLimiter_FixedWindow verifies the (limit+1)-th request in a window is
// rejected and the first request after the window elapses is admitted again.
func TestLimiter_FixedWindow(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	l := NewLimiter(store, 5, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d rejected, want allowed", i)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("6th request allowed, want rejected")
	}

	// Still inside the window
	now = now.Add(59 * time.Second)
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("request at 59s allowed, want rejected")
	}

	// Window elapsed, counter resets to 1
	now = now.Add(time.Second)
	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("request after window rejected, want allowed")
	}
	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("second request of fresh window rejected, want allowed")
	}
}

// TestLimiter_KeysIndependent verifies one client's limit does not affect another.
func TestLimiter_KeysIndependent(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter(store, 1, time.Minute)
	ctx := context.Background()

	if !l.Allow(ctx, "a") {
		t.Fatal("first request for key a rejected")
	}
	if l.Allow(ctx, "a") {
		t.Fatal("second request for key a allowed")
	}
	if !l.Allow(ctx, "b") {
		t.Fatal("first request for key b rejected")
	}
}

// TestLimiter_ConcurrentSameKey verifies increments are not lost under
// concurrent requests from the same client.
func TestLimiter_ConcurrentSameKey(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter(store, 5, time.Minute)
	ctx := context.Background()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "same") {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Errorf("allowed = %d, want exactly 5", allowed)
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

// TestLimiter_FailsOpen verifies an unreadable store admits the request.
func TestLimiter_FailsOpen(t *testing.T) {
	l := NewLimiter(failingStore{}, 5, time.Minute)

	if !l.Allow(context.Background(), "1.2.3.4") {
		t.Error("store failure rejected request, want fail open")
	}
}

// TestMemoryStore_StaleCleanup verifies expired windows get dropped once the
// map grows past its soft cap.
func TestMemoryStore_StaleCleanup(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		if _, err := store.Incr(ctx, fmt.Sprintf("key-%d", i), time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Incr(ctx, "fresh", time.Minute); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	n := len(store.windows)
	store.mu.Unlock()
	if n > 1 {
		t.Errorf("windows retained = %d, want stale entries dropped", n)
	}
}
