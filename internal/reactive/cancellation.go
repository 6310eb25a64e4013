package reactive

import (
	"context"
	"sync"
)

// CancellationTree is a hierarchical cooperative-cancellation node:
// cancelling a node cancels every child node registered under it.
// Grounded on the parent/child cascade spec.md requires for live
// entities whose monitors must stop when the owning collection entry
// is removed, generalizing the teacher's ctx/cancel pairs
// (internal/connwatch.Watcher, cmd/thane/main.go's root context) into
// an explicit tree rather than a single flat context.
type CancellationTree struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	children []*CancellationTree
	parent   *CancellationTree
}

// NewCancellationTree creates a root node derived from parentCtx.
func NewCancellationTree(parentCtx context.Context) *CancellationTree {
	ctx, cancel := context.WithCancel(parentCtx)
	return &CancellationTree{ctx: ctx, cancel: cancel}
}

// Context returns the node's context, cancelled when Cancel is called
// on this node or any ancestor.
func (t *CancellationTree) Context() context.Context {
	return t.ctx
}

// Child creates a new node whose cancellation is cascaded from t's.
func (t *CancellationTree) Child() *CancellationTree {
	t.mu.Lock()
	defer t.mu.Unlock()
	child := NewCancellationTree(t.ctx)
	child.parent = t
	t.children = append(t.children, child)
	return child
}

// Cancel cancels this node and, transitively, every child registered
// under it. Safe to call multiple times.
func (t *CancellationTree) Cancel() {
	t.mu.Lock()
	children := t.children
	t.children = nil
	t.mu.Unlock()

	for _, c := range children {
		c.Cancel()
	}
	t.cancel()
}

// WatcherToken supports "reset by replace": a live entity that needs
// to restart a watcher whenever its input changes cancels the current
// token and installs a fresh one, rather than threading a
// recreate-on-change flag through the watcher itself. Grounded on
// spec.md's entity-restarts-watcher-on-input-change requirement and
// the teacher's pattern of recreating a connwatch.Watcher when its
// target changes.
type WatcherToken struct {
	mu     sync.Mutex
	parent context.Context
	tree   *CancellationTree
}

// NewWatcherToken creates a token rooted at parentCtx with no active
// watch yet; call Reset to install the first one.
func NewWatcherToken(parentCtx context.Context) *WatcherToken {
	return &WatcherToken{parent: parentCtx}
}

// Reset cancels any currently active watch and returns a fresh context
// for the caller to start a new watcher goroutine with.
func (w *WatcherToken) Reset() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tree != nil {
		w.tree.Cancel()
	}
	w.tree = NewCancellationTree(w.parent)
	return w.tree.Context()
}

// Cancel stops the current watch without installing a replacement.
func (w *WatcherToken) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tree != nil {
		w.tree.Cancel()
		w.tree = nil
	}
}
