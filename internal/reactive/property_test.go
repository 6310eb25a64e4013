package reactive

import (
	"context"
	"testing"
	"time"
)

func TestPropertySetNotifiesOnlyOnChange(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := p.Watch(ctx)
	if v := <-ch; v != 1 {
		t.Fatalf("expected initial value 1, got %d", v)
	}

	p.Set(1) // no-op, equal value
	p.Set(2)

	select {
	case v := <-ch:
		if v != 2 {
			t.Fatalf("expected 2, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}

	select {
	case v := <-ch:
		t.Fatalf("unexpected second value %d after a no-op Set", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPropertyGetReturnsCurrentValue(t *testing.T) {
	p := New("a")
	p.Set("b")
	if got := p.Get(); got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}

func TestPropertyWatchClosesOnContextCancel(t *testing.T) {
	p := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Watch(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to drain to closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed after cancel")
	}
}
