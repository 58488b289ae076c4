package collector

import "sync"

// RingBuffer is a thread-safe bounded history that keeps the newest entries.
type RingBuffer[T any] struct {
	buffer     []T
	size       uint64
	capacity   uint64
	writeIndex uint64
	mu         sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer[T any](capacity uint64) *RingBuffer[T] {
	if capacity == 0 {
		panic("capacity must be greater than 0")
	}

	return &RingBuffer[T]{
		buffer:   make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends entries, overwriting the oldest ones once full.
func (rb *RingBuffer[T]) Add(records ...T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for _, record := range records {
		rb.buffer[rb.writeIndex%rb.capacity] = record
		rb.writeIndex++
		if rb.size < rb.capacity {
			rb.size++
		}
	}
}

// GetRecords returns the most recent n records, oldest first.
func (rb *RingBuffer[T]) GetRecords(n uint64) []T {
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

// All returns every retained record, oldest first.
func (rb *RingBuffer[T]) All() []T {
	return rb.GetRecords(rb.Capacity())
}

// Total returns how many records were ever added, including overwritten ones.
func (rb *RingBuffer[T]) Total() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.writeIndex
}

// Size returns the current number of records in the buffer
func (rb *RingBuffer[T]) Size() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum capacity of the buffer
func (rb *RingBuffer[T]) Capacity() uint64 {
	return rb.capacity
}
