package livecollection

import (
	"context"
	"testing"
	"time"
)

func TestApplyAddChangeRemove(t *testing.T) {
	c := New[string, int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := c.Watch(ctx)
	<-ch // initial empty snapshot

	cancelled := false
	c.Apply(Change[string, int]{Kind: Added, Key: "a", Value: 1}, func() { cancelled = true })
	snap := <-ch
	if len(snap) != 1 || snap[0] != 1 {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	c.Apply(Change[string, int]{Kind: Changed, Key: "a", Value: 2}, nil)
	snap = <-ch
	if len(snap) != 1 || snap[0] != 2 {
		t.Fatalf("unexpected snapshot after change: %v", snap)
	}

	c.Apply(Change[string, int]{Kind: Removed, Key: "a"}, nil)
	snap = <-ch
	if len(snap) != 0 {
		t.Fatalf("expected empty snapshot after remove, got %v", snap)
	}
	if !cancelled {
		t.Fatal("expected cancellation callback to fire on remove")
	}
}

func TestOrderingPreservedAcrossKeys(t *testing.T) {
	c := New[string, string]()
	c.Apply(Change[string, string]{Kind: Added, Key: "x", Value: "X"}, nil)
	c.Apply(Change[string, string]{Kind: Added, Key: "y", Value: "Y"}, nil)
	snap := c.Snapshot()
	if len(snap) != 2 || snap[0] != "X" || snap[1] != "Y" {
		t.Fatalf("expected insertion order preserved, got %v", snap)
	}
}

func TestCancelAllFiresEveryCallback(t *testing.T) {
	c := New[string, int]()
	var fired int
	c.Apply(Change[string, int]{Kind: Added, Key: "a", Value: 1}, func() { fired++ })
	c.Apply(Change[string, int]{Kind: Added, Key: "b", Value: 2}, func() { fired++ })
	c.CancelAll()
	if fired != 2 {
		t.Fatalf("expected 2 cancellations, got %d", fired)
	}
}

func TestGet(t *testing.T) {
	c := New[string, int]()
	c.Apply(Change[string, int]{Kind: Added, Key: "a", Value: 42}, nil)
	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Fatalf("expected 42, got %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected missing key to not be found")
	}
}

func TestWatchTimeout(t *testing.T) {
	c := New[string, int]()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ch := c.Watch(ctx)
	<-ch
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to eventually close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed")
	}
}
