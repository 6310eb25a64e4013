// Package eventbus provides a generic non-blocking broadcast bus: one
// producer publishes typed events, many subscribers receive them on
// independent buffered channels, and a slow subscriber drops events
// rather than blocking the publisher. Adapted directly from the
// teacher's internal/events/bus.go, generalized from its concrete
// Event struct to a type parameter so the same bus backs Hyprland
// events, backend-adapter events, and anything else in Wayle that
// needs many-subscribers/one-producer fan-out.
package eventbus

import "sync"

// Bus is a non-blocking broadcast bus for values of type T.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[chan T]struct{}
	// recvToSend maps the receive-only channel handed to callers back
	// to the bidirectional channel stored in subs, so Unsubscribe can
	// accept the caller's <-chan T view.
	recvToSend map[<-chan T]chan T
}

// New creates a bus ready for use.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		subs:       make(map[chan T]struct{}),
		recvToSend: make(map[<-chan T]chan T),
	}
}

// Publish sends e to every subscriber. Non-blocking: a subscriber with
// a full channel misses the event. Safe to call on a nil receiver.
func (b *Bus[T]) Publish(e T) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel receiving published events. The caller
// must call Unsubscribe to release it.
func (b *Bus[T]) Subscribe(bufSize int) <-chan T {
	ch := make(chan T, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes and closes a subscription. Safe to call more
// than once for the same channel.
func (b *Bus[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
