package collector

import (
	"context"
	"sync"
	"testing"
	"time"
)

// Recorder gathers everything a subscription delivers. It is meant for tests
// that observe runner events or toast observations.
type Recorder[T any] struct {
	t       testing.TB
	mu      sync.Mutex
	items   []T
	cancel  context.CancelFunc
	done    chan struct{}
	timeout time.Duration
}

// Record subscribes and starts recording in the background. The subscription
// is cancelled when the test ends.
func Record[T any](t testing.TB, subscribe func(context.Context) <-chan T) *Recorder[T] {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder[T]{
		t:       t,
		cancel:  cancel,
		done:    make(chan struct{}),
		timeout: 2 * time.Second,
	}
	ch := subscribe(ctx)
	go func() {
		defer close(r.done)
		for item := range ch {
			r.mu.Lock()
			r.items = append(r.items, item)
			r.mu.Unlock()
		}
	}()
	t.Cleanup(r.stop)
	return r
}

// Until blocks until match returns true for a recorded item and returns all
// items recorded so far. The test fails after the recorder timeout.
func (r *Recorder[T]) Until(match func(T) bool) []T {
	r.t.Helper()
	deadline := time.Now().Add(r.timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, item := range r.items {
			if match(item) {
				items := append([]T(nil), r.items...)
				r.mu.Unlock()
				return items
			}
		}
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Fatalf("no matching item after %s, recorded %d", r.timeout, len(r.items))
	return nil
}

// Wait blocks until at least n items were recorded.
func (r *Recorder[T]) Wait(n int) []T {
	r.t.Helper()
	deadline := time.Now().Add(r.timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.items) >= n {
			items := append([]T(nil), r.items...)
			r.mu.Unlock()
			return items
		}
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Fatalf("timeout waiting for %d items, got %d", n, len(r.items))
	return nil
}

// Stop ends the subscription and returns everything recorded.
func (r *Recorder[T]) Stop() []T {
	r.stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

func (r *Recorder[T]) stop() {
	r.cancel()
	<-r.done
}
