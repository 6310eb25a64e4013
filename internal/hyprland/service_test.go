package hyprland

import (
	"testing"

	"github.com/wayle-project/wayle/internal/hyprland/ipc"
)

func TestApplyMoveWorkspaceV2SetsMonitor(t *testing.T) {
	s := New(nil)
	s.apply(ipc.Event{Kind: "workspacev2", Fields: map[string]string{"field0": "3", "field1": "term"}})
	s.apply(ipc.Event{Kind: "moveworkspacev2", Fields: map[string]string{"field0": "3", "field1": "term", "field2": "DP-1"}})

	ws, ok := s.Workspaces.Get(3)
	if !ok {
		t.Fatal("workspace 3 not found")
	}
	if ws.Monitor != "DP-1" {
		t.Errorf("Workspace.Monitor = %q, want DP-1", ws.Monitor)
	}
}

func TestApplyChangeFloatingModeUpdatesWindow(t *testing.T) {
	s := New(nil)
	s.apply(ipc.Event{Kind: "openwindow", Fields: map[string]string{"field0": "0xabc", "field2": "kitty", "field3": "term"}})
	s.apply(ipc.Event{Kind: "changefloatingmode", Fields: map[string]string{"field0": "0xabc", "field1": "1"}})

	win, ok := s.Windows.Get("0xabc")
	if !ok {
		t.Fatal("window 0xabc not found")
	}
	if !win.Floating {
		t.Error("Window.Floating = false, want true")
	}
}

func TestApplyWindowTitleV2UpdatesTitle(t *testing.T) {
	s := New(nil)
	s.apply(ipc.Event{Kind: "openwindow", Fields: map[string]string{"field0": "0xabc", "field2": "kitty", "field3": "old title"}})
	s.apply(ipc.Event{Kind: "windowtitlev2", Fields: map[string]string{"field0": "0xabc", "field1": "new title"}})

	win, ok := s.Windows.Get("0xabc")
	if !ok {
		t.Fatal("window 0xabc not found")
	}
	if win.Title != "new title" {
		t.Errorf("Window.Title = %q, want %q", win.Title, "new title")
	}
}

func TestApplyChangeFloatingModeUnknownWindowIsNoop(t *testing.T) {
	s := New(nil)
	s.apply(ipc.Event{Kind: "changefloatingmode", Fields: map[string]string{"field0": "0xdead", "field1": "1"}})
	if _, ok := s.Windows.Get("0xdead"); ok {
		t.Error("expected unknown window to remain absent")
	}
}
