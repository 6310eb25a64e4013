package eventbus

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	b := New[int]()
	ch := b.Subscribe(4)
	defer b.Unsubscribe(ch)

	b.Publish(1)
	b.Publish(2)

	select {
	case v := <-ch:
		if v != 1 {
			t.Fatalf("expected 1, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestBusDropsOnFullChannel(t *testing.T) {
	b := New[int]()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	b.Publish(1)
	b.Publish(2) // dropped: channel already has one buffered value

	if v := <-ch; v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected second value %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusPublishOnNilIsNoop(t *testing.T) {
	var b *Bus[int]
	b.Publish(1) // must not panic
	if b.SubscriberCount() != 0 {
		t.Fatal("expected 0 subscribers on nil bus")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := New[string]()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}

	b.Unsubscribe(ch) // second call must be a no-op, not panic
}
