package collector

import "sync"

// Identifiable is implemented by records that can be looked up by identity.
type Identifiable[T comparable] interface {
	Identity() T
}

// LookupRingBuffer is a thread-safe ring buffer that also indexes its records
// by identity. Overwritten records drop out of the index.
type LookupRingBuffer[T Identifiable[S], S comparable] struct {
	buffer     []T
	lookup     map[S]uint64
	size       uint64
	capacity   uint64
	writeIndex uint64
	mu         sync.RWMutex
}

// NewLookupRingBuffer creates a new ring buffer with the given capacity
func NewLookupRingBuffer[T Identifiable[S], S comparable](capacity uint64) *LookupRingBuffer[T, S] {
	if capacity == 0 {
		panic("capacity must be greater than 0")
	}

	return &LookupRingBuffer[T, S]{
		buffer:   make([]T, capacity),
		lookup:   make(map[S]uint64, capacity),
		capacity: capacity,
	}
}

// Add adds an entry to the buffer. A record with a known identity replaces
// the indexed one in place.
func (rb *LookupRingBuffer[T, S]) Add(record T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if idx, ok := rb.lookup[record.Identity()]; ok {
		rb.buffer[idx] = record
		return
	}

	index := rb.writeIndex % rb.capacity
	if rb.size == rb.capacity {
		delete(rb.lookup, rb.buffer[index].Identity())
	} else {
		rb.size++
	}
	rb.buffer[index] = record
	rb.lookup[record.Identity()] = index
	rb.writeIndex++
}

// GetRecords returns a slice of the most recent n records, oldest first.
func (rb *LookupRingBuffer[T, S]) GetRecords(n uint64) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := min(n, rb.size)
	if count == 0 {
		return []T{}
	}

	result := make([]T, count)
	startIdx := rb.writeIndex - count
	for i := uint64(0); i < count; i++ {
		result[i] = rb.buffer[(startIdx+i)%rb.capacity]
	}

	return result
}

// Lookup returns the record with the given identity.
func (rb *LookupRingBuffer[T, S]) Lookup(identity S) (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if idx, found := rb.lookup[identity]; found {
		return rb.buffer[idx], true
	}
	var empty T
	return empty, false
}

// Clear removes all records.
func (rb *LookupRingBuffer[T, S]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	clear(rb.buffer)
	clear(rb.lookup)
	rb.size = 0
	rb.writeIndex = 0
}

// Size returns the current number of records in the buffer
func (rb *LookupRingBuffer[T, S]) Size() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum capacity of the buffer
func (rb *LookupRingBuffer[T, S]) Capacity() uint64 {
	return rb.capacity
}
