package health

import (
	"context"
	"sync"
)

// Broadcaster holds the latest value and pushes every new value to its
// subscribers. A new subscriber receives the current value immediately.
//
// Listeners are called synchronously, one value at a time, in subscription
// order. A listener must not call Publish or Subscribe on the same
// Broadcaster.
type Broadcaster[T any] struct {
	// deliverMu serializes deliveries so listeners observe values in
	// publish order.
	deliverMu sync.Mutex

	mu        sync.Mutex
	value     T
	listeners []listener[T]
	nextID    uint64
	closed    bool
	done      chan struct{}
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Subscription is a registered listener.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery to the listener. It is safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// NewBroadcaster creates a Broadcaster holding initial.
func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{value: initial, done: make(chan struct{})}
}

// Current returns the latest value.
func (b *Broadcaster[T]) Current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Publish replaces the current value and delivers it to every subscriber
// before returning. It returns false, and changes nothing, once the
// Broadcaster is closed.
func (b *Broadcaster[T]) Publish(v T) bool {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.value = v
	listeners := make([]listener[T], len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l.fn(v)
	}
	return true
}

// Subscribe registers fn and calls it with the current value before
// returning. On a closed Broadcaster fn receives the final value once and is
// not registered.
func (b *Broadcaster[T]) Subscribe(fn func(T)) *Subscription {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	current := b.value
	if b.closed {
		b.mu.Unlock()
		fn(current)
		return &Subscription{}
	}

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	b.mu.Unlock()

	fn(current)
	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Close drops every listener and rejects further publishes. The current
// value stays readable.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.listeners = nil
	close(b.done)
}

// WaitFor blocks until a value satisfying pred is current, ctx is done, or
// the Broadcaster is closed. The current value is tested first.
func (b *Broadcaster[T]) WaitFor(ctx context.Context, pred func(T) bool) (T, error) {
	found := make(chan T, 1)
	sub := b.Subscribe(func(v T) {
		if !pred(v) {
			return
		}
		select {
		case found <- v:
		default:
		}
	})
	defer sub.Unsubscribe()

	select {
	case v := <-found:
		return v, nil
	default:
	}

	var zero T
	select {
	case v := <-found:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-b.done:
		select {
		case v := <-found:
			return v, nil
		default:
		}
		return zero, ErrStopped
	}
}
