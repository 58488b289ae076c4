package collector

import (
	"context"
	"sync"
	"sync/atomic"
)

// Notifier fans run events and observations out to subscribers.
//
// Publishing never blocks the step that produced the item. Items go through a
// queue drained by one goroutine; a subscriber whose buffer is full misses the
// item and the loss is counted. Every subscriber sees items in publish order.
type Notifier[T any] struct {
	mu     sync.RWMutex
	subs   map[<-chan T]*subscription[T]
	closed bool

	bufferSize int
	queue      chan T
	drained    chan struct{}
	closeOnce  sync.Once

	dropped atomic.Uint64
}

type subscription[T any] struct {
	ch chan T
}

// NotifierOptions configures a notifier.
type NotifierOptions struct {
	// SubscriberBufferSize is the buffer of each subscriber channel.
	SubscriberBufferSize int
	// NotificationBufferSize is the length of the publish queue. Items
	// published while it is full are dropped.
	NotificationBufferSize int
}

// DefaultNotifierOptions sizes buffers for a suite run: a few hundred step
// events per scenario and a handful of subscribers.
func DefaultNotifierOptions() NotifierOptions {
	return NotifierOptions{
		SubscriberBufferSize:   100,
		NotificationBufferSize: 1000,
	}
}

func NewNotifier[T any]() *Notifier[T] {
	return NewNotifierWithOptions[T](DefaultNotifierOptions())
}

func NewNotifierWithOptions[T any](options NotifierOptions) *Notifier[T] {
	n := &Notifier[T]{
		subs:       make(map[<-chan T]*subscription[T]),
		bufferSize: options.SubscriberBufferSize,
		queue:      make(chan T, options.NotificationBufferSize),
		drained:    make(chan struct{}),
	}
	go n.dispatch()
	return n
}

// Subscribe returns a channel of items published from now on. It is closed
// when ctx ends, on Unsubscribe or when the notifier closes.
func (n *Notifier[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, n.bufferSize)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch
	}
	n.subs[ch] = &subscription[T]{ch: ch}
	n.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			n.Unsubscribe(ch)
		case <-n.drained:
		}
	}()
	return ch
}

// Unsubscribe ends a subscription. Unknown channels are ignored.
func (n *Notifier[T]) Unsubscribe(ch <-chan T) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[ch]
	if !ok {
		return
	}
	delete(n.subs, ch)
	close(sub.ch)
}

// Notify publishes item. It is a no-op after Close.
func (n *Notifier[T]) Notify(item T) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- item:
	default:
		n.dropped.Add(1)
	}
}

// Dropped reports how many deliveries were lost, either because the queue was
// full or because a subscriber did not keep up.
func (n *Notifier[T]) Dropped() uint64 {
	return n.dropped.Load()
}

// Close delivers queued items, then closes all subscriber channels. It is
// safe to call more than once.
func (n *Notifier[T]) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
		<-n.drained
	})
}

func (n *Notifier[T]) dispatch() {
	for item := range n.queue {
		// Sends never block, so the read lock keeps Unsubscribe from closing a
		// channel in the middle of a send without stalling publishers.
		n.mu.RLock()
		for _, sub := range n.subs {
			select {
			case sub.ch <- item:
			default:
				n.dropped.Add(1)
			}
		}
		n.mu.RUnlock()
	}

	n.mu.Lock()
	for _, sub := range n.subs {
		close(sub.ch)
	}
	n.subs = nil
	n.mu.Unlock()
	close(n.drained)
}
