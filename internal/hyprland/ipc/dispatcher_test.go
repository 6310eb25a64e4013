package ipc

import (
	"strings"
	"testing"
	"time"

	"github.com/wayle-project/wayle/internal/eventbus"
)

func newTestDispatcher() (*Dispatcher, *eventbus.Bus[Event], *eventbus.Bus[Event]) {
	internal := eventbus.New[Event]()
	public := eventbus.New[Event]()
	return NewDispatcher(internal, public, nil), internal, public
}

func TestDispatchFullscreenValid(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("fullscreen>>1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Fields["state"] != "1" {
			t.Fatalf("expected state=1, got %v", ev.Fields)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestDispatchFullscreenInvalid(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("fullscreen>>maybe")
	if err == nil || !strings.Contains(err.Error(), "invalid fullscreen value") {
		t.Fatalf("expected invalid fullscreen value error, got %v", err)
	}
}

func TestDispatchActiveLayoutRequiresComma(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("activelayout>>just-one-field")
	if err == nil || !strings.Contains(err.Error(), "comma-separated") {
		t.Fatalf("expected comma-separated error, got %v", err)
	}
}

func TestDispatchActiveLayoutValid(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("activelayout>>AT Translated Set 2 keyboard,English (US)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := <-ch
	if ev.Fields["layout"] != "English (US)" {
		t.Fatalf("unexpected fields: %v", ev.Fields)
	}
}

func TestDispatchScreencastInvalidState(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("screencast>>2,1234")
	if err == nil || !strings.Contains(err.Error(), "invalid state value") {
		t.Fatalf("expected invalid state value error, got %v", err)
	}
}

func TestDispatchScreencastInvalidOwner(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("screencast>>1,2")
	if err == nil || !strings.Contains(err.Error(), "invalid owner value") {
		t.Fatalf("expected invalid owner value error, got %v", err)
	}
}

func TestDispatchScreencastValid(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("screencast>>1,0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := <-ch
	if ev.Fields["state"] != "1" || ev.Fields["owner"] != "0" {
		t.Fatalf("unexpected fields: %v", ev.Fields)
	}
}

func TestDispatchLockGroupsInvalid(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("lockgroups>>maybe")
	if err == nil || !strings.Contains(err.Error(), "invalid locked value") {
		t.Fatalf("expected invalid locked value error, got %v", err)
	}
}

func TestDispatchBellStripsHexPrefix(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("bell>>0xdeadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := <-ch
	if ev.Fields["address"] != "deadbeef" {
		t.Fatalf("expected stripped address 'deadbeef', got %q", ev.Fields["address"])
	}
}

func TestDispatchBellEmpty(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("bell>>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := <-ch
	if _, ok := ev.Fields["address"]; ok {
		t.Fatalf("expected no address field for empty bell data, got %v", ev.Fields)
	}
}

func TestDispatchUnknownEventIsNotAnError(t *testing.T) {
	d, _, pub := newTestDispatcher()
	ch := pub.Subscribe(1)
	if err := d.Dispatch("somebrandnewevent>>1,2,3"); err != nil {
		t.Fatalf("unknown event must not error, got %v", err)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unknown event must not be published, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchBothBusesReceiveWorkspaceV1AndV2Independently(t *testing.T) {
	d, internal, pub := newTestDispatcher()
	intCh := internal.Subscribe(2)
	pubCh := pub.Subscribe(2)

	if err := d.Dispatch("workspace>>3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Dispatch("workspacev2>>3,dev"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-intCh:
		case <-time.After(time.Second):
			t.Fatal("expected both v1 and v2 events on internal bus")
		}
		select {
		case <-pubCh:
		case <-time.After(time.Second):
			t.Fatal("expected both v1 and v2 events on public bus")
		}
	}
}

func TestDispatchMissingSeparator(t *testing.T) {
	d, _, _ := newTestDispatcher()
	err := d.Dispatch("no-separator-here")
	if err == nil {
		t.Fatal("expected error for missing separator")
	}
}
