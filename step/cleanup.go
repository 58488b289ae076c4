package step

import (
	"context"
	"sync"
)

type cleanupKeyType struct{}

var cleanupKey = cleanupKeyType{}

type cleanup struct {
	label string
	fn    Func
}

type cleanupStack struct {
	mu      sync.Mutex
	items   []cleanup
	drained bool
}

func (s *cleanupStack) push(c cleanup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return false
	}
	s.items = append(s.items, c)
	return true
}

// drain returns the cleanups in reverse registration order. Later pushes are
// rejected.
func (s *cleanupStack) drain() []cleanup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drained = true
	out := make([]cleanup, len(s.items))
	for i, c := range s.items {
		out[len(s.items)-1-i] = c
	}
	s.items = nil
	return out
}

func withCleanups(ctx context.Context, s *cleanupStack) context.Context {
	return context.WithValue(ctx, cleanupKey, s)
}

// Defer registers fn to run after the last step of the current scenario, even
// if a step failed or timed out. It reports false when ctx does not belong to
// a running scenario or the scenario already ran its cleanups, which happens
// to a step that finishes after it timed out. The caller then releases the
// resource itself.
func Defer(ctx context.Context, label string, fn Func) bool {
	s, ok := ctx.Value(cleanupKey).(*cleanupStack)
	if !ok {
		return false
	}
	return s.push(cleanup{label: label, fn: fn})
}
