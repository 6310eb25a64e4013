// Package reactive provides the Property and ConfigProperty primitives
// that back every live entity in Wayle: a value cell that notifies
// watchers only when its value actually changes, and a three-layer
// (default/config/runtime) variant used for configuration-driven state.
package reactive

import (
	"context"
	"reflect"
	"sync"
)

// Property is an equality-gated value cell. Set only notifies
// subscribers when the new value differs from the current one (via
// reflect.DeepEqual, so T may be a slice or map as well as a scalar);
// Watch yields the current value immediately, then one value per
// subsequent change. Zero value is not usable; use New.
type Property[T any] struct {
	mu   sync.RWMutex
	val  T
	subs map[chan T]struct{}
}

// New creates a Property holding the given initial value.
func New[T any](initial T) *Property[T] {
	return &Property[T]{
		val:  initial,
		subs: make(map[chan T]struct{}),
	}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.val
}

// Set updates the value. Subscribers are notified only if the value
// changed under equality comparison; identical values are a no-op.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reflect.DeepEqual(p.val, v) {
		return
	}
	p.val = v
	// Sends happen under the same lock Watch's cleanup goroutine closes
	// subscriber channels under, so a channel can never be closed
	// between this loop reading p.subs and the send itself landing —
	// matching internal/eventbus.Bus.Publish's RLock-across-send-loop
	// pattern, which keeps send and close mutually exclusive there too.
	for ch := range p.subs {
		select {
		case ch <- v:
		default:
			// Slow subscriber: rather than block the writer, replace
			// its unread value with this newer one, so its next
			// receive yields the latest value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Watch returns a channel that receives the current value immediately,
// then one value per subsequent change, until ctx is cancelled. The
// channel is closed when ctx is done. A subscriber that falls behind
// misses intermediate values but always receives the latest one.
func (p *Property[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	p.mu.Lock()
	// Seed with the current value and register atomically under the
	// same lock Set uses, so no update can be missed or double-sent.
	ch <- p.val
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
		close(ch)
	}()

	return ch
}

// SubscriberCount reports how many active Watch channels exist.
func (p *Property[T]) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
