// Package livecollection implements the LiveCollection[K,V] pattern:
// a reactive.Property holding a slice snapshot of live entities,
// reconciled against an incoming stream of add/change/remove events.
// Grounded on spec.md §4.4 combined with the teacher's reconciliation
// shape in internal/homeassistant/statewatch.go (filter, then apply to
// local state) and the debounced-pending-map update pattern in
// internal/unifi/poller.go.
package livecollection

import (
	"context"
	"sync"

	"github.com/wayle-project/wayle/internal/reactive"
)

// ChangeKind identifies the kind of reconciliation event applied to a
// LiveCollection.
type ChangeKind int

const (
	// Added means a new entity appeared under a key not seen before.
	Added ChangeKind = iota
	// Changed means an existing entity was replaced in place.
	Changed
	// Removed means an entity's cancellation token should fire and the
	// entity should drop out of the snapshot.
	Removed
)

// Change is a single reconciliation event fed into a LiveCollection.
type Change[K comparable, V any] struct {
	Kind  ChangeKind
	Key   K
	Value V
}

// LiveCollection maintains an ordered snapshot of live entities keyed
// by K, publishing the current slice as a reactive.Property[[]V] on
// every reconciled change. Per-key updates are applied in the order
// they are received; across different keys, only a consistent
// snapshot is guaranteed (no fixed cross-key ordering), matching
// spec.md §4.4.
type LiveCollection[K comparable, V any] struct {
	mu       sync.Mutex
	order    []K
	entries  map[K]V
	cancels  map[K]func()
	Property *reactive.Property[[]V]
}

// New creates an empty LiveCollection.
func New[K comparable, V any]() *LiveCollection[K, V] {
	return &LiveCollection[K, V]{
		entries:  make(map[K]V),
		cancels:  make(map[K]func()),
		Property: reactive.New[[]V](nil),
	}
}

// Apply reconciles a single change and republishes the snapshot.
// cancel, if non-nil, is stored for a key that is new to the
// collection (an Added, or a Changed for an unknown key) and invoked
// when that key is later Removed.
func (c *LiveCollection[K, V]) Apply(change Change[K, V], cancel func()) {
	c.mu.Lock()
	switch change.Kind {
	case Added:
		if _, exists := c.entries[change.Key]; !exists {
			c.order = append(c.order, change.Key)
			c.entries[change.Key] = change.Value
			if cancel != nil {
				c.cancels[change.Key] = cancel
			}
		} else {
			// A buggy backend re-announcing an already-known key is
			// treated as a Change per spec.md §4.4: the stored value
			// is replaced, but the existing cancellation is left
			// alone, so the caller's new cancel func (if any) is
			// discarded, not installed over the live one.
			c.entries[change.Key] = change.Value
		}
	case Changed:
		if _, exists := c.entries[change.Key]; exists {
			c.entries[change.Key] = change.Value
		} else {
			// Unknown key on a Change event is promoted to Add per
			// spec.md §4.4.
			c.order = append(c.order, change.Key)
			c.entries[change.Key] = change.Value
			if cancel != nil {
				c.cancels[change.Key] = cancel
			}
		}
	case Removed:
		if prevCancel, ok := c.cancels[change.Key]; ok {
			prevCancel()
			delete(c.cancels, change.Key)
		}
		delete(c.entries, change.Key)
		for i, k := range c.order {
			if k == change.Key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	snapshot := make([]V, 0, len(c.order))
	for _, k := range c.order {
		snapshot = append(snapshot, c.entries[k])
	}
	c.mu.Unlock()

	c.Property.Set(snapshot)
}

// Get returns the value for a key and whether it is present.
func (c *LiveCollection[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Snapshot returns the current ordered slice of values.
func (c *LiveCollection[K, V]) Snapshot() []V {
	return c.Property.Get()
}

// Watch streams snapshots: current, then one per reconciled change.
func (c *LiveCollection[K, V]) Watch(ctx context.Context) <-chan []V {
	return c.Property.Watch(ctx)
}

// CancelAll cancels every entity's token, used when the collection
// itself is being torn down (e.g. its owning backend adapter stopped).
func (c *LiveCollection[K, V]) CancelAll() {
	c.mu.Lock()
	cancels := make([]func(), 0, len(c.cancels))
	for _, fn := range c.cancels {
		cancels = append(cancels, fn)
	}
	c.cancels = make(map[K]func())
	c.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
}
